// Package playback owns the single audio output for tutor speech. At most one
// payload plays at a time; every caller routes through Controller.
package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rbright/lingua/internal/config"
)

// supportedTypes are the containers any configured player can be expected
// to handle.
var supportedTypes = []string{
	"audio/wav",
	"audio/mpeg",
	"audio/ogg",
	"audio/webm",
	"video/webm",
	"audio/mp4",
	"video/mp4",
	"audio/aac",
	"audio/flac",
}

// Controller enforces single-flight playback with toggle semantics.
type Controller struct {
	player  Player
	enabled bool
	logger  *slog.Logger

	mu      sync.Mutex
	current *active
}

type active struct {
	id     string
	handle Handle
}

// New builds a controller around a player.
func New(player Player, enabled bool, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{player: player, enabled: enabled, logger: logger}
}

// NewFromConfig wires the Pulse player with the command-player fallback.
func NewFromConfig(cfg config.PlaybackConfig, logger *slog.Logger) *Controller {
	player := AutoPlayer{
		Pulse:   PulsePlayer{},
		Command: CommandPlayer{Argv: cfg.PlayerCmd.Argv},
	}
	return New(player, cfg.Enable, logger)
}

// Play starts the payload for id. Calling Play with the id that is already
// playing stops it instead; a different id stops the previous playback
// before starting. The payload is decoded here, not ahead of time.
func (c *Controller) Play(ctx context.Context, id string, audioBase64 string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		prev := c.current
		c.current = nil
		prev.handle.Stop()
		if prev.id == id {
			c.logger.Info("playback toggled off", "id", id)
			return nil
		}
		c.logger.Debug("playback superseded", "previous", prev.id, "next", id)
	}

	if !c.enabled {
		return &Error{Kind: KindDisabled, Err: errors.New("playback.enable is false")}
	}

	data, err := decodePayload(audioBase64)
	if err != nil {
		c.logger.Warn("playback decode failed", "id", id, "error", err.Error())
		return err
	}

	mt := mimetype.Detect(data)
	if !supported(mt) {
		err := &Error{Kind: KindUnsupported, Err: errors.New("unsupported audio format " + mt.String())}
		c.logger.Warn("playback unsupported", "id", id, "mime_type", mt.String())
		return err
	}

	handle, err := c.player.Play(ctx, data, mt.String())
	if err != nil {
		var pbErr *Error
		if !errors.As(err, &pbErr) {
			err = &Error{Kind: KindPlayer, Err: err}
		}
		c.logger.Warn("playback start failed", "id", id, "error", err.Error())
		return err
	}

	current := &active{id: id, handle: handle}
	c.current = current
	c.logger.Info("playback started", "id", id, "mime_type", mt.String(), "bytes", len(data))
	go c.watch(current)
	return nil
}

// Stop halts whatever is playing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	prev := c.current
	c.current = nil
	prev.handle.Stop()
}

// Playing reports the id currently playing.
func (c *Controller) Playing() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", false
	}
	return c.current.id, true
}

func (c *Controller) watch(a *active) {
	err, _ := <-a.handle.Done()

	c.mu.Lock()
	if c.current == a {
		c.current = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("playback ended with error", "id", a.id, "error", err.Error())
	}
}

func decodePayload(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &Error{Kind: KindDecode, Err: errors.New("no audio payload")}
	}
	if strings.HasPrefix(raw, "data:") {
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
	}
	if err != nil {
		return nil, &Error{Kind: KindDecode, Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Kind: KindDecode, Err: errors.New("empty audio payload")}
	}
	return data, nil
}

func supported(mt *mimetype.MIME) bool {
	for _, t := range supportedTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}
