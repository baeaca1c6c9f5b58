// Command proxide runs the intercepting HTTP/2 debugging proxy described
// by this module: TLS man-in-the-middle termination, gRPC/Protobuf-aware
// decoding, and session capture/replay.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/denisvmedia/proxide/version"
)

var jsonOutput bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "proxide",
		Short:         "Intercepting HTTP/2 debugging proxy",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of the interactive view")

	root.AddCommand(newMonitorCmd())
	root.AddCommand(newCaptureCmd())
	root.AddCommand(newViewCmd())
	root.AddCommand(newConfigCmd())

	return root
}
