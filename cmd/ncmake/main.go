package main

import (
	"os"

	"github.com/goplus/ncmake/cmd/ncmake/internal"
)

func main() {
	os.Exit(internal.Execute())
}
