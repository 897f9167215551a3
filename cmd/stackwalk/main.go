package main

import (
	"os"

	"github.com/getAsterisk/stackwalk/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
