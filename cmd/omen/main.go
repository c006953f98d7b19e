// Command omen runs static-analysis signals (complexity, self-admitted
// technical debt, hotspots, feature flags, near-duplicates, and
// churn/coupling/ownership history) over a source repository.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/codefang/cmd/omen/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "omen:", err)
		os.Exit(1)
	}
}
