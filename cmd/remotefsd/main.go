// Command remotefsd is the remote filesystem's server daemon: it serves
// the register/login, list, files, mkdir and lookup HTTP endpoints over
// the namespace tree, metadata catalog and permission gate.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/remotefs/cmd/remotefsd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
