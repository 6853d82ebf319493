package main

import "github.com/notargets/impesconv/cmd"

func main() {
	cmd.Execute()
}
