// Command remotefs-mount is the client daemon: it mounts the remote
// filesystem's HTTP surface as a local FUSE mount, translating kernel VFS
// callbacks into HTTP calls against a remotefsd server.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/remotefs/cmd/remotefs-mount/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
