package main

import (
	"os"

	"github.com/florianloch/sptfcore/internal"
)

func main() {
	os.Exit(internal.Run(os.Args[1:]))
}
