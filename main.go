package main

import "go-lyre/cmd"

func main() {
	cmd.Execute()
}
