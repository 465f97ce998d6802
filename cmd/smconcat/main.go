// Package main is the entry point for the smconcat CLI application.
package main

import (
	"github.com/liuxd6825/smconcat/cmd"
)

func main() {
	cmd.Execute()
}
