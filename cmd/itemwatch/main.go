// main is the entry point for the itemwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/itemwatch/itemwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
