package main

import (
	"os"

	"github.com/MichelMeloG/JurChat/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
