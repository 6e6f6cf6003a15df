// Package main provides graphctl, the administrative CLI for the tag graph.
package main

import (
	"fmt"
	"os"

	"github.com/kaziapp/taggraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
