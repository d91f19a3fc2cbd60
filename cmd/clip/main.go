// Command clip plays and renders clips.
//
// Usage:
//
//	clip info FILE...
//	clip render -o OUT [--duration D] FILE...
//	clip play [FILE...]
//
// Clips are loaded into slots. Settings are read from a yaml config file
// given with --config, flags override the file.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pipelined.dev/clip/log"
)

func newRootCommand(logger *logrus.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "clip",
		Short:         "Play and render clips in sync with a timeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerFlags(root.PersistentFlags())
	root.AddCommand(
		newInfoCommand(logger),
		newRenderCommand(logger),
		newPlayCommand(logger),
	)
	return root
}

func main() {
	if err := newRootCommand(log.GetLogger()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
