package main

import "github.com/fmuoria/doc-compare-agent/internal/cli"

func main() {
	cli.Main()
}
