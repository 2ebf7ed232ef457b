package main

import "github.com/turtacn/intelpipe/cmd/cli"

func main() {
	cli.Execute()
}
