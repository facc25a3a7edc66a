// Command sessionctl mints, decodes and verifies session ids, and talks to a
// running ensemble.
//
// Usage:
//
//	sessionctl mint --server-id 3
//	sessionctl decode 0x038088a3b94f0000
//	sessionctl verify --reference --policy all
//	sessionctl open --server http://localhost:8081
//	sessionctl servers --coordinator http://localhost:8080
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var nowMs = func() int64 { return time.Now().UnixMilli() }

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "sessionctl",
		Short:        "Session id tooling for a sessid ensemble",
		SilenceUsage: true,
	}
	root.AddCommand(newMintCommand())
	root.AddCommand(newDecodeCommand())
	root.AddCommand(newVerifyCommand())
	root.AddCommand(newOpenCommand())
	root.AddCommand(newServersCommand())
	return root
}

func main() {
	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
