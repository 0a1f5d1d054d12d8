package main

import (
	"fmt"
	"os"

	"tzoffline/cmd/tzoffline"
)

func main() {
	if err := tzoffline.NewRootCmd().Execute(); err != nil {
		printErr("%v\n", err)
		os.Exit(1)
	}
}

func printErr(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(os.Stderr, "❌ %s", msg)
}
