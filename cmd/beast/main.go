// Package main is the entry point for the beast CLI.
package main

import (
	"fmt"
	"os"

	"github.com/rickgao/binance-beast/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
