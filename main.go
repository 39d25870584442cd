package main

import "github.com/frahmantamala/agent-management/cmd"

func main() {
	cmd.Execute()
}
