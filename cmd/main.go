package main

import (
	"os"

	"github.com/tenetdb/tenet/cmd/tenet"
)

func main() {
	if err := tenet.Execute(); err != nil {
		os.Exit(1)
	}
}
