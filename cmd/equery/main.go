package main

import (
	"os"

	"github.com/msto63/englishquery/cmd/equery/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
