package main

import (
	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pipelined.dev/clip/slot"
)

func newPlayCommand(logger *logrus.Logger) *cobra.Command {
	var stopped bool
	cmd := &cobra.Command{
		Use:   "play [FILE...]",
		Short: "Play clips on the output device and control them from a shell",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := configFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			e, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := e.close(); err == nil {
					err = closeErr
				}
			}()
			if err := e.load(cfg.descriptors(args)); err != nil {
				logger.Warn(err)
			}
			if err := e.open(); err != nil {
				return err
			}
			sh := newShell(e, cmd.OutOrStdout())
			if !stopped {
				if err := e.setTransport(slot.TransportState{Playing: true}); err != nil {
					return err
				}
				if err := e.playAll(); err != nil {
					logger.Warn(err)
				}
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:       "clip> ",
				AutoComplete: sh.completer(),
				Stdout:       cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			defer rl.Close()
			return sh.run(rl)
		},
	}
	cmd.Flags().BoolVar(&stopped, "stopped", false, "don't start the transport and clips")
	return cmd
}
