package main

import "github.com/pfrederiksen/ponisha-watch/internal/cli"

func main() {
	cli.Execute()
}
