package main

import "github.com/pantherassess/outcomereport/cmd"

func main() {
	cmd.Execute()
}
