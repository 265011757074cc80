package main

import (
	"os"

	"github.com/surajshivkumar/ConvoLens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
