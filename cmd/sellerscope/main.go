// Package main is the entry point for sellerscope.
package main

import (
	"os"

	"github.com/sellerscope/sellerscope/cmd/sellerscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
