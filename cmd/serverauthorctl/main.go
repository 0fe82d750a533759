// Package main implements the serverauthorctl CLI for configuring OMAG
// servers through the Server Author view service libraries.
package main

import (
	"fmt"
	"os"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
