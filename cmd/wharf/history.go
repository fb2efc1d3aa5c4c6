package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/config"
	"github.com/jamesainslie/wharf/pkg/wharf/history"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of generate, verify and moor runs.

Each run is stored as one JSON document under history.path, including
the manifest digest and the paths found drifting.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific operation",
	Long:  `Display detailed information about a specific operation by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recent operations.
func runHistory(cmd *cobra.Command, _ []string) error {
	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'wharf generate [path]' to record a manifest.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%-40s  %-8s  %-8s  %-10s  %s\n", "ID", "TYPE", "FILES", "SIZE", "RESULT")
	fmt.Fprintln(out, strings.Repeat("-", 84))

	for _, e := range entries {
		fmt.Fprintf(out, "%-40s  %-8s  %-8d  %-10s  %s\n",
			truncateString(e.ID, 40),
			e.Operation,
			e.Summary.Files,
			types.FormatSize(e.Summary.Bytes),
			entryResult(e),
		)
	}

	fmt.Fprintln(out, strings.Repeat("-", 84))
	fmt.Fprintf(out, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(out, "Use 'wharf history show <id>' for details on a specific entry.")
	return nil
}

// entryResult summarizes an entry's outcome in one word.
func entryResult(e history.Entry) string {
	switch {
	case e.Operation == history.OpVerify && e.Summary.Drift():
		return fmt.Sprintf("drift (%d)", e.Summary.Mismatched+e.Summary.Missing+e.Summary.Unexpected)
	case e.Operation == history.OpVerify:
		return "ok"
	case e.Operation == history.OpMoor:
		return "-> " + e.Yacht
	default:
		return "recorded"
	}
}

// runHistoryShow displays details of a specific operation.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	e, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nOperation Details")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "ID:         %s\n", e.ID)
	fmt.Fprintf(out, "Timestamp:  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Operation:  %s\n", e.Operation)
	fmt.Fprintf(out, "Root:       %s\n", e.Root)
	if e.Yacht != "" {
		fmt.Fprintf(out, "Yacht:      %s\n", e.Yacht)
	}
	if e.ManifestDigest != "" {
		fmt.Fprintf(out, "Manifest:   %s\n", e.ManifestDigest)
	}
	fmt.Fprintf(out, "Duration:   %s\n", e.Duration)
	fmt.Fprintf(out, "Files:      %d\n", e.Summary.Files)
	fmt.Fprintf(out, "Total Size: %s\n", types.FormatSize(e.Summary.Bytes))

	switch e.Operation {
	case history.OpVerify:
		fmt.Fprintf(out, "Passed:     %d\n", e.Summary.Passed)
		fmt.Fprintf(out, "Mismatched: %d\n", e.Summary.Mismatched)
		fmt.Fprintf(out, "Missing:    %d\n", e.Summary.Missing)
		fmt.Fprintf(out, "Unexpected: %d\n", e.Summary.Unexpected)
	case history.OpMoor:
		fmt.Fprintf(out, "Transferred: %d\n", e.Summary.Transferred)
	}

	if len(e.Drift) > 0 {
		fmt.Fprintln(out, "\nDrift:")
		fmt.Fprintln(out, strings.Repeat("-", 60))

		limit := min(len(e.Drift), 50)
		for _, p := range e.Drift[:limit] {
			fmt.Fprintf(out, "  %s\n", p)
		}
		if len(e.Drift) > limit {
			fmt.Fprintf(out, "\n... and %d more paths\n", len(e.Drift)-limit)
		}
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(_ *cobra.Command, _ []string) error {
	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := j.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
