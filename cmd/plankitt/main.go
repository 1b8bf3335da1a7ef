// Command plankitt is the developer CLI for career plan documents.
package main

import (
	"os"

	"github.com/kittclouds/plankitt/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
