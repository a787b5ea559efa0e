package main

import "github.com/drydock-platform/drydock/cmd"

func main() {
	cmd.Execute()
}
