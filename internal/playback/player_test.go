package playback

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultPlayerArgv(t *testing.T) {
	require.Equal(t, "ffplay", defaultPlayerArgv("audio/webm; codecs=opus")[0])
	require.Equal(t, "ffplay", defaultPlayerArgv("video/mp4")[0])
	require.Equal(t, "pw-play", defaultPlayerArgv("audio/wav")[0])
	require.Equal(t, "pw-play", defaultPlayerArgv("audio/mpeg")[0])
}

func TestIsWAV(t *testing.T) {
	require.True(t, isWAV("audio/x-wav"))
	require.True(t, isWAV("AUDIO/WAV"))
	require.False(t, isWAV("audio/ogg"))
}

func TestCommandPlayerStopKillsProcess(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	p := CommandPlayer{Argv: []string{"sh", "-c", "sleep 5", "lingua"}}
	h, err := p.Play(context.Background(), wavBytes([]int16{1}), "audio/wav")
	require.NoError(t, err)

	start := time.Now()
	h.Stop()
	require.Less(t, time.Since(start), 3*time.Second)

	_, open := <-h.Done()
	require.False(t, open)
}

func TestCommandPlayerNaturalEnd(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	p := CommandPlayer{Argv: []string{"true"}}
	h, err := p.Play(context.Background(), wavBytes([]int16{1}), "audio/wav")
	require.NoError(t, err)

	select {
	case err := <-h.Done():
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("player did not exit")
	}
}

func TestCommandPlayerMissingBinary(t *testing.T) {
	p := CommandPlayer{Argv: []string{"lingua-no-such-player"}}
	_, err := p.Play(context.Background(), []byte("x"), "audio/wav")
	require.Error(t, err)
	require.Equal(t, KindPlayer, KindOf(err))
}

type stubPlayer struct {
	err   error
	calls int
}

func (s *stubPlayer) Play(context.Context, []byte, string) (Handle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}

func TestAutoPlayerFallsBackToCommand(t *testing.T) {
	pulse := &stubPlayer{err: errUnsupportedByPlayer}
	cmd := &stubPlayer{}

	_, err := AutoPlayer{Pulse: pulse, Command: cmd}.Play(context.Background(), nil, "audio/ogg")
	require.NoError(t, err)
	require.Equal(t, 1, pulse.calls)
	require.Equal(t, 1, cmd.calls)
}

func TestAutoPlayerWithoutCommand(t *testing.T) {
	pulse := &stubPlayer{err: errUnsupportedByPlayer}
	_, err := AutoPlayer{Pulse: pulse}.Play(context.Background(), nil, "audio/ogg")
	require.Error(t, err)
	require.Equal(t, KindUnsupported, KindOf(err))

	pulse.err = &Error{Kind: KindDevice, Err: errors.New("no sink")}
	_, err = AutoPlayer{Pulse: pulse}.Play(context.Background(), nil, "audio/wav")
	require.Equal(t, KindDevice, KindOf(err))
}
