// Package main provides the entry point for legsim, a cycle-accurate LEGv8
// pipeline simulator built on Akita.
//
// The same command line is also available as ./cmd/legsim.
package main

import "github.com/sarchlab/legsim/cli"

func main() {
	cli.Execute()
}
