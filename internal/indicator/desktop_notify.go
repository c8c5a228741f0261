package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const notificationIcon = "audio-input-microphone"

// notification is one freedesktop Notify call. replaceID reuses the bubble
// from the previous turn phase so a turn shows a single notification.
type notification struct {
	appName   string
	replaceID uint32
	summary   string
	body      string
	timeoutMS int
	// urgent sets the critical urgency hint.
	urgent bool
}

func (n notification) args() []string {
	args := []string{
		"Notify",
		"susssasa{sv}i",
		n.appName,
		strconv.FormatUint(uint64(n.replaceID), 10),
		notificationIcon,
		n.summary,
		n.body,
		"0", // actions
	}
	if n.urgent {
		args = append(args, "1", "urgency", "y", "2")
	} else {
		args = append(args, "0")
	}
	return append(args, strconv.Itoa(n.timeoutMS))
}

// desktopNotify sends n over the session bus and returns the server's id.
func desktopNotify(ctx context.Context, n notification) (uint32, error) {
	out, err := busctl(ctx, n.args()...)
	if err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", err)
	}

	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}

	value, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(value), nil
}

// desktopDismiss closes the notification with id.
func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", err)
	}
	return nil
}

// busctl calls a method on org.freedesktop.Notifications and returns the
// trimmed reply.
func busctl(ctx context.Context, method ...string) (string, error) {
	args := append([]string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
	}, method...)

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", err
		}
		return "", fmt.Errorf("%w (%s)", err, trimmed)
	}
	return trimmed, nil
}
