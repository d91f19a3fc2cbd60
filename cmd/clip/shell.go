package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/davecgh/go-spew/spew"

	"pipelined.dev/clip/slot"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("usage")
)

// shell executes text commands against the engine.
type shell struct {
	engine   *engine
	out      io.Writer
	commands map[string]shellCommand
}

type shellCommand struct {
	usage string
	help  string
	// args is the number of required arguments.
	args int
	run  func(args []string) error
}

func newShell(e *engine, out io.Writer) *shell {
	sh := &shell{
		engine: e,
		out:    out,
	}
	sh.commands = map[string]shellCommand{
		"play": {
			usage: "play SLOT [next-bar]", help: "play the clip", args: 1,
			run: sh.slotCommand(func(s *slot.Slot, args []string) error {
				opts := s.PlayOptions()
				if len(args) > 0 {
					opts.NextBar = args[0] == "next-bar"
				}
				return s.Play(opts)
			}),
		},
		"stop": {
			usage: "stop SLOT [end]", help: "stop the clip immediately or at its end", args: 1,
			run: sh.slotCommand(func(s *slot.Slot, args []string) error {
				b := slot.Immediately
				if len(args) > 0 && args[0] == "end" {
					b = slot.EndOfClip
				}
				return s.Stop(b)
			}),
		},
		"pause": {
			usage: "pause SLOT", help: "pause the clip", args: 1,
			run: sh.slotCommand(func(s *slot.Slot, _ []string) error {
				return s.Pause()
			}),
		},
		"record": {
			usage: "record SLOT [overdub]", help: "record into the slot", args: 1,
			run: sh.slotCommand(func(s *slot.Slot, args []string) error {
				kind := slot.Normal
				if len(args) > 0 && args[0] == "overdub" {
					kind = slot.Overdub
				}
				return s.Record(kind)
			}),
		},
		"repeat": {
			usage: "repeat SLOT", help: "toggle repeat", args: 1,
			run: sh.slotCommand(func(s *slot.Slot, _ []string) error {
				sh.printf("%v\n", s.ToggleRepeat())
				return nil
			}),
		},
		"volume": {
			usage: "volume SLOT VALUE", help: "set the clip volume", args: 2,
			run: sh.slotCommand(func(s *slot.Slot, args []string) error {
				v, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				sh.printf("%v\n", s.SetVolume(v))
				return nil
			}),
		},
		"tempo": {
			usage: "tempo SLOT FACTOR", help: "set the clip tempo factor", args: 2,
			run: sh.slotCommand(func(s *slot.Slot, args []string) error {
				f, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				return s.SetTempoFactor(f)
			}),
		},
		"seek": {
			usage: "seek SLOT POSITION", help: "seek paused clip to proportional position", args: 2,
			run: sh.slotCommand(func(s *slot.Slot, args []string) error {
				pos, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				events, err := s.SetProportionalPosition(pos)
				for _, e := range events {
					sh.printf("%v\n", e)
				}
				return err
			}),
		},
		"fill": {
			usage: "fill SLOT PATH", help: "load content into the slot", args: 2,
			run: sh.slotCommand(func(s *slot.Slot, args []string) error {
				return s.Fill(args[0])
			}),
		},
		"clear": {
			usage: "clear SLOT", help: "remove the clip", args: 1,
			run: sh.slotCommand(func(s *slot.Slot, _ []string) error {
				return s.Clear()
			}),
		},
		"info": {
			usage: "info SLOT", help: "print clip information", args: 1,
			run: sh.slotCommand(func(s *slot.Slot, _ []string) error {
				info, err := s.Info()
				if err != nil {
					return err
				}
				sh.printf("%v %s %v\n", info.Kind, info.Path, info.Length)
				return nil
			}),
		},
		"start": {
			usage: "start", help: "start the transport",
			run: func([]string) error {
				return sh.engine.setTransport(slot.TransportState{Playing: true})
			},
		},
		"halt": {
			usage: "halt", help: "stop the transport",
			run: func([]string) error {
				return sh.engine.setTransport(slot.TransportState{})
			},
		},
		"hold": {
			usage: "hold", help: "pause the transport",
			run: func([]string) error {
				return sh.engine.setTransport(slot.TransportState{Paused: true})
			},
		},
		"jump": {
			usage: "jump SECONDS", help: "move the transport cursor", args: 1,
			run: func(args []string) error {
				pos, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				return sh.engine.jump(pos)
			},
		},
		"bpm": {
			usage: "bpm TEMPO", help: "set the timeline tempo", args: 1,
			run: func(args []string) error {
				bpm, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return err
				}
				sh.engine.timeline.SetTempo(bpm)
				return nil
			},
		},
		"poll": {
			usage: "poll", help: "print slot events",
			run: func([]string) error {
				for _, e := range sh.engine.matrix.Poll() {
					sh.printf("%d: %v\n", e.Slot, e.Event)
				}
				return nil
			},
		},
		"state": {
			usage: "state", help: "dump slot descriptors and transport",
			run: func([]string) error {
				sh.printf("%s", spew.Sdump(sh.engine.transport, sh.engine.matrix.Descriptors()))
				return nil
			},
		},
	}
	return sh
}

func (sh *shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(sh.out, format, args...)
}

// slotCommand parses the slot index and runs fn with remaining arguments.
func (sh *shell) slotCommand(fn func(*slot.Slot, []string) error) func([]string) error {
	return func(args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("slot %q: %w", args[0], err)
		}
		return sh.engine.matrix.Do(index, func(s *slot.Slot) error {
			return fn(s, args[1:])
		})
	}
}

// exec runs a single line. It returns true if the shell should quit.
func (sh *shell) exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := fields[0], fields[1:]
	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		sh.help()
		return false, nil
	}
	cmd, ok := sh.commands[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
	if len(args) < cmd.args {
		return false, fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}
	return false, cmd.run(args)
}

func (sh *shell) names() []string {
	names := make([]string, 0, len(sh.commands)+3)
	for name := range sh.commands {
		names = append(names, name)
	}
	names = append(names, "help", "quit", "exit")
	sort.Strings(names)
	return names
}

func (sh *shell) help() {
	for _, name := range sh.names() {
		if cmd, ok := sh.commands[name]; ok {
			sh.printf("  %-22s %s\n", cmd.usage, cmd.help)
		}
	}
	sh.printf("  %-22s %s\n", "quit", "exit the shell")
}

// run reads lines until quit or end of input.
func (sh *shell) run(rl *readline.Instance) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := sh.exec(line)
		if err != nil {
			sh.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (sh *shell) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(sh.commands))
	for _, name := range sh.names() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
