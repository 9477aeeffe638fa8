package main

import (
	"os"

	"github.com/maxkimambo/bake/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
