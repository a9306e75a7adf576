//go:build !gui

package main

import (
	"fmt"
	"os"
)

func runGUI(*startup) {
	fmt.Fprintln(os.Stderr, "iconch: built without GUI support (rebuild with -tags gui)")
	os.Exit(1)
}
