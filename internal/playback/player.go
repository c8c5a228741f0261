package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jfreymuth/pulse"
)

// Handle is one running playback.
type Handle interface {
	// Stop ends playback and returns once its resources are released.
	Stop()
	// Done delivers the terminal error (nil on natural end or Stop) and closes.
	Done() <-chan error
}

// Player starts audio for a decoded payload of the sniffed type.
type Player interface {
	Play(ctx context.Context, data []byte, mimeType string) (Handle, error)
}

// errUnsupportedByPlayer lets AutoPlayer fall through to the next backend.
var errUnsupportedByPlayer = errors.New("payload not supported by this player")

// PulsePlayer streams 16-bit PCM WAV through a Pulse playback stream.
type PulsePlayer struct{}

func (PulsePlayer) Play(_ context.Context, data []byte, mimeType string) (Handle, error) {
	if !isWAV(mimeType) {
		return nil, errUnsupportedByPlayer
	}
	info, err := parseWAV(data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Err: err}
	}
	if !info.pcm16() {
		return nil, errUnsupportedByPlayer
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("lingua"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, &Error{Kind: KindDevice, Err: fmt.Errorf("connect pulse server: %w", err)}
	}

	samples := info.samples()
	h := &pulseHandle{client: client, done: make(chan error, 1)}
	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if h.stopping.Load() || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	layout := pulse.PlaybackMono
	if info.Channels == 2 {
		layout = pulse.PlaybackStereo
	}
	stream, err := client.NewPlayback(
		reader,
		layout,
		pulse.PlaybackSampleRate(info.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackMediaName("lingua tutor voice"),
	)
	if err != nil {
		client.Close()
		return nil, &Error{Kind: KindDevice, Err: fmt.Errorf("create pulse playback stream: %w", err)}
	}
	h.stream = stream

	stream.Start()
	go h.wait()
	return h, nil
}

type pulseHandle struct {
	client   *pulse.Client
	stream   *pulse.PlaybackStream
	stopping atomic.Bool
	done     chan error
}

func (h *pulseHandle) wait() {
	h.stream.Drain()
	err := h.stream.Error()
	h.stream.Close()
	h.client.Close()
	if err != nil {
		err = &Error{Kind: KindDevice, Err: err}
	}
	h.done <- err
	close(h.done)
}

// Stop makes the reader report end of data; the stream then drains at most
// one latency window of buffered audio.
func (h *pulseHandle) Stop() {
	h.stopping.Store(true)
	for range h.done {
	}
}

func (h *pulseHandle) Done() <-chan error { return h.done }

// CommandPlayer writes the payload to a temp file and runs an external
// player on it (pw-play by default; ffplay for containers libsndfile
// cannot read).
type CommandPlayer struct {
	Argv []string
}

func (p CommandPlayer) Play(ctx context.Context, data []byte, mimeType string) (Handle, error) {
	argv := p.Argv
	if len(argv) == 0 {
		argv = defaultPlayerArgv(mimeType)
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, &Error{Kind: KindPlayer, Err: fmt.Errorf("player %q not found: %w", argv[0], err)}
	}

	ext := ".bin"
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" {
		ext = mt.Extension()
	}
	f, err := os.CreateTemp("", "lingua-tutor-*"+ext)
	if err != nil {
		return nil, &Error{Kind: KindPlayer, Err: fmt.Errorf("create temp audio file: %w", err)}
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, &Error{Kind: KindPlayer, Err: fmt.Errorf("write temp audio file: %w", err)}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, &Error{Kind: KindPlayer, Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	args := append(append([]string(nil), argv[1:]...), path)
	cmd := exec.CommandContext(runCtx, argv[0], args...)
	if err := cmd.Start(); err != nil {
		cancel()
		_ = os.Remove(path)
		return nil, &Error{Kind: KindPlayer, Err: fmt.Errorf("start player %q: %w", argv[0], err)}
	}

	h := &commandHandle{cancel: cancel, done: make(chan error, 1)}
	go func() {
		err := cmd.Wait()
		_ = os.Remove(path)
		if err != nil && (h.stopped.Load() || runCtx.Err() != nil) {
			err = nil
		}
		if err != nil {
			err = &Error{Kind: KindPlayer, Err: fmt.Errorf("player %q: %w", argv[0], err)}
		}
		cancel()
		h.done <- err
		close(h.done)
	}()
	return h, nil
}

type commandHandle struct {
	cancel  context.CancelFunc
	stopped atomic.Bool
	done    chan error
}

func (h *commandHandle) Stop() {
	h.stopped.Store(true)
	h.cancel()
	for range h.done {
	}
}

func (h *commandHandle) Done() <-chan error { return h.done }

func defaultPlayerArgv(mimeType string) []string {
	switch baseType(mimeType) {
	case "audio/webm", "video/webm", "audio/mp4", "video/mp4", "audio/x-m4a", "audio/aac":
		return []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "error"}
	default:
		return []string{"pw-play", "--media-role", "Communication"}
	}
}

func baseType(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	return base
}

// AutoPlayer tries Pulse for plain PCM WAV and hands everything else to the
// command player.
type AutoPlayer struct {
	Pulse   Player
	Command Player
}

func (p AutoPlayer) Play(ctx context.Context, data []byte, mimeType string) (Handle, error) {
	if p.Pulse != nil {
		h, err := p.Pulse.Play(ctx, data, mimeType)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, errUnsupportedByPlayer) && p.Command == nil {
			return nil, err
		}
	}
	if p.Command == nil {
		return nil, &Error{Kind: KindUnsupported, Err: fmt.Errorf("no player for %s", mimeType)}
	}
	return p.Command.Play(ctx, data, mimeType)
}

func isWAV(mimeType string) bool {
	switch baseType(mimeType) {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return true
	default:
		return false
	}
}
