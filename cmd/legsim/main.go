// Command legsim runs LEGv8 programs on the cycle-accurate pipeline model.
package main

import "github.com/sarchlab/legsim/cli"

func main() {
	cli.Execute()
}
