package main

import "github.com/pfrederiksen/kids-events/internal/cli"

func main() {
	cli.Execute()
}
