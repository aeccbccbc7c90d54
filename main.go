package main

import "github.com/relloyd/xlpipe/cmd"

func main() {
	cmd.Execute()
}
