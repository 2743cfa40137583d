// Package main is the entry point for the roulette CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "roulette:", err)
		os.Exit(1)
	}
}
