package main

import "github.com/takumayoshiokadotcom/kyonomi/cmd/kyonomi/commands"

func main() {
	commands.Execute()
}
