// Package capability decides whether this machine can record audio and which
// container type the recorder should produce.
package capability

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/lingua/internal/audio"
	"github.com/rbright/lingua/internal/config"
)

// Encoder backend names.
const (
	EncoderFFmpeg = "ffmpeg"
	EncoderWAV    = "wav"
)

const encoderListTimeout = 5 * time.Second

// Report is the immutable outcome of one probe.
type Report struct {
	RecordingSupported bool   `json:"recording_supported"`
	Reason             string `json:"reason,omitempty"`
	PreferredMIMEType  string `json:"preferred_mime_type,omitempty"`
	Encoder            string `json:"encoder,omitempty"`
	Codec              string `json:"codec,omitempty"`
	Device             string `json:"device,omitempty"`
}

// Environment is the set of runtime capability flags the prober reads.
type Environment interface {
	// CaptureDevice returns the input source that would be used, or an error
	// when no capture path exists.
	CaptureDevice(ctx context.Context) (string, error)
	LookPath(name string) (string, error)
	// Encoders returns the audio encoder names ffmpeg reports.
	Encoders(ctx context.Context, ffmpegPath string) (map[string]bool, error)
}

// Prober runs the ordered capability checks.
type Prober struct {
	env         Environment
	mode        string
	ffmpegPath  string
	preferences []string
}

// NewProber builds a prober for the recorder and audio configuration.
func NewProber(cfg config.Config, env Environment) *Prober {
	if env == nil {
		env = SystemEnvironment{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback, Constraints: audio.Constraints{
			SampleRate:       cfg.Audio.SampleRate,
			EchoCancellation: cfg.Audio.EchoCancellation,
			NoiseSuppression: cfg.Audio.NoiseSuppression,
		}}
	}
	return &Prober{
		env:         env,
		mode:        strings.ToLower(strings.TrimSpace(cfg.Recorder.Encoder)),
		ffmpegPath:  cfg.Recorder.FFmpegPath,
		preferences: append([]string(nil), cfg.Recorder.MIMEPreference...),
	}
}

// Probe checks, in order, the capture path, an encoder backend, and the
// first encodable entry of the preference list. No capture is opened.
func (p *Prober) Probe(ctx context.Context) Report {
	device, err := p.env.CaptureDevice(ctx)
	if err != nil {
		return Report{Reason: captureReason(err)}
	}

	report := Report{RecordingSupported: true, Device: device, Encoder: EncoderWAV}

	var encoders map[string]bool
	if p.mode != EncoderWAV {
		path, lookErr := p.env.LookPath(p.ffmpegPath)
		if lookErr != nil {
			if p.mode == EncoderFFmpeg {
				return Report{Device: device, Reason: fmt.Sprintf("recorder.encoder=ffmpeg but %q was not found; install ffmpeg or set recorder.encoder=auto", p.ffmpegPath)}
			}
		} else {
			listCtx, cancel := context.WithTimeout(ctx, encoderListTimeout)
			encoders, err = p.env.Encoders(listCtx, path)
			cancel()
			if err != nil && p.mode == EncoderFFmpeg {
				return Report{Device: device, Reason: fmt.Sprintf("ffmpeg encoder list failed: %v", err)}
			}
		}
	}

	for _, mime := range p.preferences {
		if normalizeMIME(mime) == MIMEWAV {
			report.PreferredMIMEType = MIMEWAV
			report.Encoder = EncoderWAV
			return report
		}
		format, ok := LookupFormat(mime)
		if !ok || len(encoders) == 0 {
			continue
		}
		for _, codec := range format.Codecs {
			if encoders[codec] {
				report.PreferredMIMEType = format.MIMEType
				report.Encoder = EncoderFFmpeg
				report.Codec = codec
				return report
			}
		}
	}

	// No preferred type is encodable; the recorder falls back to the
	// built-in WAV encoder and leaves the type unset.
	return report
}

func captureReason(err error) string {
	switch {
	case errors.Is(err, audio.ErrNoDevice):
		return "no audio input source is available; connect a microphone"
	case errors.Is(err, audio.ErrPermissionDenied):
		return "the sound server refused microphone access"
	default:
		return fmt.Sprintf("audio capture is unavailable (PulseAudio/PipeWire not reachable): %v", err)
	}
}

// SystemEnvironment reads capability flags from the live Pulse server and PATH.
type SystemEnvironment struct {
	Input       string
	Fallback    string
	Constraints audio.Constraints
}

// CaptureDevice resolves the configured input against the live source list.
func (e SystemEnvironment) CaptureDevice(ctx context.Context) (string, error) {
	selection, err := audio.SelectDevice(ctx, e.Input, e.Fallback, e.Constraints)
	if err != nil {
		return "", err
	}
	return selection.Device.ID, nil
}

// LookPath resolves an executable on PATH.
func (SystemEnvironment) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Encoders runs `ffmpeg -hide_banner -encoders` and parses the audio rows.
func (SystemEnvironment) Encoders(ctx context.Context, ffmpegPath string) (map[string]bool, error) {
	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("%s -encoders: %w", ffmpegPath, err)
	}
	return ParseEncoders(string(out)), nil
}

// ParseEncoders extracts audio encoder names from `ffmpeg -encoders` output.
// Rows look like " A....D libopus   libopus Opus"; the legend above the
// dashed separator is skipped.
func ParseEncoders(output string) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inTable {
			if strings.HasPrefix(line, "---") {
				inTable = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "A") {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}
