// Package cli implements the tapctl command line interface.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Tap    *TapCommand
	Target *TargetCommand
	Status *StatusCommand
	Reset  *ResetCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tapctl"
	parser.LongDescription = "Tap-tempo estimation: record taps, track the rolling average, and score accuracy against a target BPM."

	cmds := &commands{
		Tap:    &TapCommand{globals: &globals, version: version},
		Target: &TargetCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Reset:  &ResetCommand{globals: &globals, version: version},
	}

	parser.AddCommand("tap", "Run a tap session", "Read taps from stdin (one per line) or emit synthetic taps, printing the estimated BPM after each.", cmds.Tap)
	parser.AddCommand("target", "Set or clear the target BPM", "Set or clear the target tempo used for accuracy scoring.", cmds.Target)
	parser.AddCommand("status", "Show daemon session and counters", "Show the daemon's current session snapshot and tap counters.", cmds.Status)
	parser.AddCommand("reset", "Reset the session", "Reset the daemon's live session, or wipe the local preference store with --local.", cmds.Reset)

	return parser, &globals, cmds
}

// Run is the main entry point for the tapctl CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tapctl %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
