package capability

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/lingua/internal/audio"
	"github.com/rbright/lingua/internal/config"
)

type fakeEnv struct {
	device      string
	captureErr  error
	lookErr     error
	encoders    map[string]bool
	encodersErr error

	captureCalls int
	lookCalls    int
}

func (f *fakeEnv) CaptureDevice(context.Context) (string, error) {
	f.captureCalls++
	return f.device, f.captureErr
}

func (f *fakeEnv) LookPath(name string) (string, error) {
	f.lookCalls++
	if f.lookErr != nil {
		return "", f.lookErr
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeEnv) Encoders(context.Context, string) (map[string]bool, error) {
	return f.encoders, f.encodersErr
}

func proberFor(env *fakeEnv, mutate func(*config.Config)) *Prober {
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewProber(cfg, env)
}

func TestProbeUnsupportedWhenCaptureMissingSkipsEncoderChecks(t *testing.T) {
	env := &fakeEnv{captureErr: fmt.Errorf("connect pulse server: %w", errors.New("connection refused"))}
	report := proberFor(env, nil).Probe(context.Background())

	require.False(t, report.RecordingSupported)
	require.Contains(t, report.Reason, "not reachable")
	require.Empty(t, report.PreferredMIMEType)
	require.Zero(t, env.lookCalls)
}

func TestProbeReasonForMissingDevice(t *testing.T) {
	env := &fakeEnv{captureErr: audio.ErrNoDevice}
	report := proberFor(env, nil).Probe(context.Background())
	require.False(t, report.RecordingSupported)
	require.Contains(t, report.Reason, "connect a microphone")
}

func TestProbePicksFirstEncodablePreference(t *testing.T) {
	env := &fakeEnv{device: "mic", encoders: map[string]bool{"libopus": true, "aac": true}}
	report := proberFor(env, nil).Probe(context.Background())

	require.True(t, report.RecordingSupported)
	require.Equal(t, "audio/webm;codecs=opus", report.PreferredMIMEType)
	require.Equal(t, EncoderFFmpeg, report.Encoder)
	require.Equal(t, "libopus", report.Codec)
	require.Equal(t, "mic", report.Device)
}

func TestProbeFallsThroughToMP4(t *testing.T) {
	env := &fakeEnv{device: "mic", encoders: map[string]bool{"aac": true}}
	report := proberFor(env, nil).Probe(context.Background())

	require.Equal(t, "audio/mp4", report.PreferredMIMEType)
	require.Equal(t, "aac", report.Codec)
}

func TestProbeNoEncodableTypeLeavesPreferenceEmpty(t *testing.T) {
	env := &fakeEnv{device: "mic", encoders: map[string]bool{"pcm_s16le": true}}
	report := proberFor(env, nil).Probe(context.Background())

	require.True(t, report.RecordingSupported)
	require.Empty(t, report.PreferredMIMEType)
	require.Equal(t, EncoderWAV, report.Encoder)
}

func TestProbeAutoWithoutFFmpegUsesBuiltInEncoder(t *testing.T) {
	env := &fakeEnv{device: "mic", lookErr: exec.ErrNotFound}
	report := proberFor(env, nil).Probe(context.Background())

	require.True(t, report.RecordingSupported)
	require.Equal(t, EncoderWAV, report.Encoder)
	require.Empty(t, report.PreferredMIMEType)
}

func TestProbeForcedFFmpegMissingIsUnsupported(t *testing.T) {
	env := &fakeEnv{device: "mic", lookErr: exec.ErrNotFound}
	report := proberFor(env, func(c *config.Config) { c.Recorder.Encoder = "ffmpeg" }).Probe(context.Background())

	require.False(t, report.RecordingSupported)
	require.Contains(t, report.Reason, "ffmpeg")
}

func TestProbeWAVModeNeverRunsFFmpeg(t *testing.T) {
	env := &fakeEnv{device: "mic", encoders: map[string]bool{"libopus": true}}
	report := proberFor(env, func(c *config.Config) {
		c.Recorder.Encoder = "wav"
		c.Recorder.MIMEPreference = []string{"audio/webm;codecs=opus", "audio/wav"}
	}).Probe(context.Background())

	require.Zero(t, env.lookCalls)
	require.Equal(t, MIMEWAV, report.PreferredMIMEType)
	require.Equal(t, EncoderWAV, report.Encoder)
}

func TestProbeHonoursCustomPreferenceOrder(t *testing.T) {
	env := &fakeEnv{device: "mic", encoders: map[string]bool{"libopus": true}}
	report := proberFor(env, func(c *config.Config) {
		c.Recorder.MIMEPreference = []string{"audio/ogg;codecs=opus", "audio/webm;codecs=opus"}
	}).Probe(context.Background())

	require.Equal(t, "audio/ogg;codecs=opus", report.PreferredMIMEType)
}

func TestParseEncoders(t *testing.T) {
	output := `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libopus              libopus Opus (codec opus)
 A..X.. opus                 Opus
 S..... ass                  ASS (Advanced SubStation Alpha) subtitle
`
	encoders := ParseEncoders(output)
	require.Equal(t, map[string]bool{"aac": true, "libopus": true, "opus": true}, encoders)
}

func TestFormatFFmpegArgs(t *testing.T) {
	webm, ok := LookupFormat("audio/webm; codecs=opus")
	require.True(t, ok)
	require.Equal(t, []string{"-c:a", "libopus", "-f", "webm"}, webm.FFmpegArgs("libopus"))
	require.Equal(t, []string{"-c:a", "opus", "-strict", "-2", "-f", "webm"}, webm.FFmpegArgs("opus"))

	mp4, ok := LookupFormat("audio/mp4")
	require.True(t, ok)
	require.Equal(t, []string{"-c:a", "aac", "-movflags", "frag_keyframe+empty_moov+default_base_moof", "-f", "mp4"}, mp4.FFmpegArgs("aac"))

	_, ok = LookupFormat("audio/flac")
	require.False(t, ok)
}
