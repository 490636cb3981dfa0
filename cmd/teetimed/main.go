package main

import "github.com/example/teetime-agent/cmd"

func main() {
	cmd.Execute()
}
