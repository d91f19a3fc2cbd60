package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pipelined.dev/clip"
	"pipelined.dev/clip/content"
)

func newInfoCommand(logger *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Print information about content files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := content.NewLoader(content.WithLogger(logger))
			out := cmd.OutOrStdout()
			for _, path := range args {
				src, err := loader.Load(path)
				if err != nil {
					return err
				}
				c := clip.New(src)
				fmt.Fprintf(out, "%s\n", path)
				fmt.Fprintf(out, "  kind:      %v\n", src.Kind())
				fmt.Fprintf(out, "  channels:  %d\n", src.NumChannels())
				fmt.Fprintf(out, "  rate:      %v\n", src.FrameRate())
				fmt.Fprintf(out, "  frames:    %d\n", src.FrameCount())
				fmt.Fprintf(out, "  length:    %v\n", c.NativeLength())
				if tempo := src.Tempo(); tempo > 0 {
					fmt.Fprintf(out, "  tempo:     %v\n", tempo)
				}
			}
			return nil
		},
	}
}
