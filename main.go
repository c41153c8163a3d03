package main

import "livevision/cmd"

func main() {
	cmd.Execute()
}
