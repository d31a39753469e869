// Command intact administers an IntAct curation store: schema migrations,
// accession minting, users, publications and the curation lifecycle.
package main

import (
	"fmt"
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
		return
	}
	exitFunc(0)
}
