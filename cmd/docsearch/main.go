// Package main provides the entry point for the docsearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/WhiteShieldPT/docsearch-pt/cmd/docsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
