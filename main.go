package main

import "github.com/tablewright/tablewright/cmd"

func main() {
	cmd.Execute()
}
