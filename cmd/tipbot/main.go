// Command tipbot runs the chat tipping wallet: a Discord interaction server
// and a local CLI over the same command handlers.
package main

import (
	"os"

	"l2-tipbot/cmd/tipbot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
