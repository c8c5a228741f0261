// Package cli parses lingua's argv into a command and global flags.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandTalk    Command = "talk"
	CommandToggle  Command = "toggle"
	CommandStop    Command = "stop"
	CommandStatus  Command = "status"
	CommandRetry   Command = "retry"
	CommandAck     Command = "ack"
	CommandPlay    Command = "play"
	CommandProbe   Command = "probe"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandTalk:    {},
	CommandToggle:  {},
	CommandStop:    {},
	CommandStatus:  {},
	CommandRetry:   {},
	CommandAck:     {},
	CommandPlay:    {},
	CommandProbe:   {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Parsed is the result of one argv parse.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// TurnID is the optional operand of play.
	TurnID string
}

// Parse reads global flags followed by at most one command.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			if cmd == CommandPlay && len(rest) == 1 && !strings.HasPrefix(rest[0], "-") {
				parsed.TurnID = rest[0]
				rest = nil
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

// HelpText renders usage for binaryName.
func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  talk      Open the interactive tutor (space to record, p to play, q to quit)
  toggle    Start a voice turn, or stop the active one
  stop      Stop the active recording and send it to the tutor
  status    Print the current turn state
  retry     Discard the displayed reply and get ready for another turn
  ack       Dismiss the current error
  play      Play or stop the tutor's spoken reply (optional TURN_ID)
  probe     Print the recording capability report as JSON
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/lingua/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
