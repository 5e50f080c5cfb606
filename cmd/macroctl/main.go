package main

import (
	"os"

	"github.com/mcauduro0/macro-trading/cmd/macroctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
