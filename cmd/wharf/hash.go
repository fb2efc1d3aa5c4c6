package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/digest"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the content hash of files",
	Long: `Print the content hash of each file in the same form stored in
manifests, one "<hash>  <path>" line per file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	alg, err := algorithm()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range args {
		sum, err := digest.File(path, alg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s\n", sum, path)
	}
	return nil
}
