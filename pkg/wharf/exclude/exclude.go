// Package exclude classifies root-relative paths as included or excluded
// against a list of glob-lite patterns.
//
// Pattern grammar, evaluated independently per pattern (any match excludes):
//
//	*suffix   path ends with "suffix"               ("*.log")
//	prefix*   path starts with "prefix"             ("cache_*")
//	name      path is "name", has "name" as a full  (".git")
//	          component, or starts with "name/"
//
// There are no character classes, no escaping and no combined
// prefix-and-suffix globs. Paths use forward slashes.
package exclude

import "strings"

// Kind is the shape of a compiled pattern.
type Kind int

const (
	// Component matches an exact path or a full path component.
	Component Kind = iota
	// Suffix matches the end of a path.
	Suffix
	// Prefix matches the start of a path.
	Prefix
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Suffix:
		return "suffix"
	case Prefix:
		return "prefix"
	default:
		return "component"
	}
}

// Pattern is one compiled exclusion rule.
type Pattern struct {
	// Raw is the pattern exactly as configured.
	Raw string

	// Kind selects the matching strategy.
	Kind Kind

	// text is the literal compared against paths.
	text string
}

// Parse classifies a single pattern.
// A leading '*' takes precedence over a trailing one, so "*foo*" is a suffix
// pattern for "foo*".
func Parse(raw string) Pattern {
	switch {
	case strings.HasPrefix(raw, "*"):
		return Pattern{Raw: raw, Kind: Suffix, text: raw[1:]}
	case strings.HasSuffix(raw, "*"):
		return Pattern{Raw: raw, Kind: Prefix, text: raw[:len(raw)-1]}
	default:
		return Pattern{Raw: raw, Kind: Component, text: raw}
	}
}

// Match reports whether the pattern excludes rel.
func (p Pattern) Match(rel string) bool {
	switch p.Kind {
	case Suffix:
		return strings.HasSuffix(rel, p.text)
	case Prefix:
		return strings.HasPrefix(rel, p.text)
	default:
		return rel == p.text ||
			strings.Contains(rel, "/"+p.text+"/") ||
			strings.HasPrefix(rel, p.text+"/")
	}
}

// Matcher evaluates a pattern list compiled once.
// The zero value and a nil *Matcher exclude nothing.
type Matcher struct {
	patterns []Pattern
}

// Compile builds a Matcher for patterns.
func Compile(patterns []string) *Matcher {
	m := &Matcher{patterns: make([]Pattern, 0, len(patterns))}
	for _, raw := range patterns {
		m.patterns = append(m.patterns, Parse(raw))
	}
	return m
}

// Match reports whether any pattern excludes rel.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if p.Match(rel) {
			return true
		}
	}
	return false
}

// Patterns returns the compiled patterns in configuration order.
func (m *Matcher) Patterns() []Pattern {
	if m == nil {
		return nil
	}
	out := make([]Pattern, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Matches reports whether rel is excluded by patterns.
// Callers matching many paths should Compile once instead.
func Matches(rel string, patterns []string) bool {
	return Compile(patterns).Match(rel)
}
