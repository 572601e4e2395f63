package main

import "github.com/tmcheck/tmcheck/cmd"

func main() {
	cmd.Execute()
}
