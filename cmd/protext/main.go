package main

import "github.com/localrivet/protext/internal/cli"

func main() {
	cli.Execute()
}
