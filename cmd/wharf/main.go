// Package main provides the entry point for the wharf CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		if !errors.Is(err, errDrift) {
			printError("%v", err)
		}
		os.Exit(1)
	}
}
