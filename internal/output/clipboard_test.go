package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/tutorapi"
)

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from lingua")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from lingua", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestClipboardCopyWritesText(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	clip := NewClipboard(config.OutputConfig{
		ClipboardCmd: config.CommandConfig{Argv: []string{scriptPath, clipboardPath}},
	}, nil)
	require.NoError(t, clip.Copy(context.Background(), "I went to the store"))

	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "I went to the store", string(data))
}

func TestClipboardCopySkipsEmptyText(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	clip := NewClipboard(config.OutputConfig{
		ClipboardCmd: config.CommandConfig{Argv: []string{scriptPath, clipboardPath}},
	}, nil)
	require.NoError(t, clip.Copy(context.Background(), "  "))

	_, err := os.Stat(clipboardPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestClipboardCopyReturnsCommandFailure(t *testing.T) {
	failScript := writeFailScript(t, "clipboard unavailable")

	clip := NewClipboard(config.OutputConfig{
		ClipboardCmd: config.CommandConfig{Argv: []string{failScript}},
	}, nil)
	err := clip.Copy(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
}

func TestReplyText(t *testing.T) {
	require.Equal(t, "Great job!", ReplyText(tutorapi.TutorVoiceResult{TutorMessage: " Great job! "}))

	withCorrections := tutorapi.TutorVoiceResult{
		TutorMessage: "Almost!",
		Corrections: []tutorapi.Correction{
			{UserSentence: "I goed home", CorrectedSentence: "I went home"},
			{UserSentence: "She have a cat", CorrectedSentence: "She has a cat"},
		},
	}
	require.Equal(t, "I went home\nShe has a cat", ReplyText(withCorrections))

	blank := tutorapi.TutorVoiceResult{
		TutorMessage: "Almost!",
		Corrections:  []tutorapi.Correction{{UserSentence: "x"}},
	}
	require.Equal(t, "Almost!", ReplyText(blank))
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
