package main

import (
	"os"

	"github.com/sahasand/dmpbuilder/cmd/dmpbuilder"
)

func main() {
	if err := dmpbuilder.Execute(); err != nil {
		os.Exit(1)
	}
}
