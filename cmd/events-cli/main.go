package main

import "github.com/anypay/events-server/cmd/events-cli/cmd"

func main() {
	cmd.Execute()
}
