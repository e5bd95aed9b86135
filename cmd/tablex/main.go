// Package main provides the tablex CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/tablex/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
