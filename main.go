package main

import "github.com/taskpond/realtime/cmd"

func main() {
	cmd.Execute()
}
