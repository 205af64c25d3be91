package main

import "github.com/sanix-darker/streamkernel/cmd"

func main() {
	cmd.Execute()
}
