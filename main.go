package main

import "github.com/reelforge/reelforge/internal/cli"

func main() {
	cli.Main()
}
