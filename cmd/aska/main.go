// Package main is the entry point for the aska service.
package main

import (
	"fmt"
	"os"

	"github.com/rayhan/aska/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
