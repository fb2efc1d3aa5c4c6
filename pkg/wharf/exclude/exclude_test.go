package exclude

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		kind Kind
	}{
		{raw: "*.log", kind: Suffix},
		{raw: "cache_*", kind: Prefix},
		{raw: ".git", kind: Component},
		{raw: "*", kind: Suffix},
		{raw: "*mid*", kind: Suffix},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			p := Parse(tt.raw)
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.raw, p.Raw)
		})
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		patterns []string
		want     bool
	}{
		{name: "suffix matches log", path: "test.log", patterns: []string{"*.log"}, want: true},
		{name: "suffix skips txt", path: "file.txt", patterns: []string{"*.log"}, want: false},
		{name: "suffix matches nested", path: "var/app/debug.log", patterns: []string{"*.log"}, want: true},
		{name: "prefix matches", path: "tmp_upload/a", patterns: []string{"tmp_*"}, want: true},
		{name: "prefix is anchored", path: "a/tmp_upload", patterns: []string{"tmp_*"}, want: false},
		{name: "exact component", path: ".git", patterns: []string{".git"}, want: true},
		{name: "leading component", path: ".git/config", patterns: []string{".git"}, want: true},
		{name: "inner component", path: "vendor/pkg/.git/HEAD", patterns: []string{".git"}, want: true},
		{name: "component is bounded", path: "gitconfig", patterns: []string{".git"}, want: false},
		{name: "component needs separators", path: "a/.gitignore", patterns: []string{".git"}, want: false},
		{name: "trailing component not matched", path: "a/.git", patterns: []string{".git"}, want: false},
		{name: "any pattern excludes", path: "node_modules/x.js", patterns: []string{"*.log", "node_modules"}, want: true},
		{name: "empty pattern list", path: "a", patterns: nil, want: false},
		{name: "bare star excludes everything", path: "anything", patterns: []string{"*"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Matches(tt.path, tt.patterns))
		})
	}
}

func TestMatcher_Nil(t *testing.T) {
	t.Parallel()

	var m *Matcher
	assert.False(t, m.Match("a"))
	assert.Nil(t, m.Patterns())
}

func TestMatcher_Patterns(t *testing.T) {
	t.Parallel()

	m := Compile([]string{"*.log", ".git"})
	got := m.Patterns()
	if assert.Len(t, got, 2) {
		assert.Equal(t, Suffix, got[0].Kind)
		assert.Equal(t, Component, got[1].Kind)
	}
}
