// Package main provides the entry point for ime-tool.
package main

import (
	"os"

	"github.com/abdullathedruid/ime-tool/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], cli.DefaultDeps()))
}
