// Package main provides the entry point for the kodegen-config CLI.
package main

import (
	"fmt"
	"os"

	"github.com/cyrup-ai/kodegen-tools-config/cmd/kodegen-config/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
