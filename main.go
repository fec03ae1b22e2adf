package main

import "github.com/BioHazard786/sdprelay/cmd"

func main() {
	cmd.Execute()
}
