// Package output copies tutor text to the desktop clipboard.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/tutorapi"
)

const clipboardTimeout = 2 * time.Second

// Clipboard pipes text into the configured clipboard command.
type Clipboard struct {
	argv   []string
	logger *slog.Logger
}

// NewClipboard constructs a clipboard writer from output config.
func NewClipboard(cfg config.OutputConfig, logger *slog.Logger) *Clipboard {
	return &Clipboard{argv: cfg.ClipboardCmd.Argv, logger: logger}
}

// Copy writes text to the clipboard. Empty text is a no-op.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(ctx, c.argv, text); err != nil {
		if c.logger != nil {
			c.logger.Warn("clipboard copy failed", "error", err.Error())
		}
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// ReplyText is what gets copied for a turn: the corrected sentences when the
// tutor found mistakes, otherwise the tutor's message.
func ReplyText(result tutorapi.TutorVoiceResult) string {
	if len(result.Corrections) == 0 {
		return strings.TrimSpace(result.TutorMessage)
	}
	lines := make([]string, 0, len(result.Corrections))
	for _, c := range result.Corrections {
		if s := strings.TrimSpace(c.CorrectedSentence); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return strings.TrimSpace(result.TutorMessage)
	}
	return strings.Join(lines, "\n")
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
