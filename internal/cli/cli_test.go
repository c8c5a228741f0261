package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/lingua.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/lingua.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "version flag",
			args:     []string{"--version"},
			wantCmd:  CommandVersion,
			wantHelp: false,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:     "valid talk command",
			args:     []string{"talk"},
			wantCmd:  CommandTalk,
			wantHelp: false,
		},
		{
			name:     "valid ack command",
			args:     []string{"ack"},
			wantCmd:  CommandAck,
			wantHelp: false,
		},
		{
			name:    "play with flag operand",
			args:    []string{"play", "--bogus"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "play with two operands",
			args:    []string{"play", "a", "b"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "removed cancel command",
			args:    []string{"cancel"},
			wantErr: "unknown command",
		},
		{
			name:     "valid stop with config",
			args:     []string{"--config", "/tmp/cfg", "stop"},
			wantCmd:  CommandStop,
			wantHelp: false,
			wantPath: "/tmp/cfg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("lingua")
	require.Contains(t, text, "talk")
	require.Contains(t, text, "toggle")
	require.Contains(t, text, "stop")
	require.Contains(t, text, "retry")
	require.Contains(t, text, "probe")
	require.Contains(t, text, "doctor")
	require.Contains(t, text, "--config PATH")
	require.Contains(t, text, "lingua/config.jsonc")
}

func TestParsePlayTurnID(t *testing.T) {
	parsed, err := Parse([]string{"play", "6f1c2d3e"})
	require.NoError(t, err)
	require.Equal(t, CommandPlay, parsed.Command)
	require.Equal(t, "6f1c2d3e", parsed.TurnID)

	parsed, err = Parse([]string{"play"})
	require.NoError(t, err)
	require.Empty(t, parsed.TurnID)
}

func TestParseTurnIDOnlyForPlay(t *testing.T) {
	_, err := Parse([]string{"status", "6f1c2d3e"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected arguments")
}
