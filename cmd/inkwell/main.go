// Package main is the entry point for the inkwell CLI.
package main

import "github.com/inkwell/inkwell-cli/internal/cli"

func main() {
	cli.Execute()
}
