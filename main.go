package main

import (
	_ "go.uber.org/automaxprocs"
	"ticketer/cmd"
)

func main() {
	cmd.Start()
}
