package main

import "github.com/score-tracker/internal/cli"

func main() {
	cli.Execute()
}
