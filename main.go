package main

import "seyon/cmd"

func main() {
	cmd.Execute()
}
