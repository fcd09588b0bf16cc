// Spendgate CLI entry point
//
// Spendgate is a caching and cost-governance gateway that sits between a
// chat bot and its paid AI providers, keeping every user under a daily
// spending cap.
package main

import "github.com/jbctechsolutions/spendgate/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
