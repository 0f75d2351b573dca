package main

import (
	"os"

	"github.com/ragdocs/ragdocs/cmd/ragdocs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
