package main

import "cio-consistency/internal/cli"

func main() {
	cli.Execute()
}
