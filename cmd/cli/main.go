// Package main is the entry point for the deltashare CLI binary.
package main

import (
	"os"

	cli "deltashare-mock/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
