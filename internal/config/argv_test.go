package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "simple", input: "pw-play --media-role Communication", want: []string{"pw-play", "--media-role", "Communication"}},
		{name: "quoted spaces", input: `ffplay -window_title "tutor voice"`, want: []string{"ffplay", "-window_title", "tutor voice"}},
		{name: "single quote", input: `ffplay -window_title 'tutor voice'`, want: []string{"ffplay", "-window_title", "tutor voice"}},
		{name: "escaped space", input: `player tutor\ voice`, want: []string{"player", "tutor voice"}},
		{name: "leading comment", input: `# pw-play`, want: nil},
		{name: "unterminated quote", input: `player "oops`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `player voice\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommandExpandsHomeProgram(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cmd, err := parseCommand("playback.player_cmd", `~/bin/say-play --volume 0.8`)
	require.NoError(t, err)
	require.Equal(t, `~/bin/say-play --volume 0.8`, cmd.Raw)
	require.Equal(t, []string{filepath.Join(home, "bin", "say-play"), "--volume", "0.8"}, cmd.Argv)
}

func TestParseCommandNamesKeyOnError(t *testing.T) {
	_, err := parseCommand("output.clipboard_cmd", `wl-copy "oops`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid output.clipboard_cmd")
	require.Contains(t, err.Error(), "unterminated quote")
}
