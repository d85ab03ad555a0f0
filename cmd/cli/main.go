package main

import "terapiahub/cmd/cli/command"

func main() {
	command.Execute()
}
