// Package pipeline glues recorder, packager, and tutorapi into the session's
// capture and submit ports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/packager"
	"github.com/rbright/lingua/internal/recorder"
	"github.com/rbright/lingua/internal/session"
	"github.com/rbright/lingua/internal/tutorapi"
)

// VoiceClient is the tutor API surface used for submission.
type VoiceClient interface {
	SubmitVoice(ctx context.Context, audio packager.EncodedAudio, sessionID string) (tutorapi.TutorVoiceResult, error)
}

// Submitter packages frozen recordings and uploads them.
type Submitter struct {
	client    VoiceClient
	logger    *slog.Logger
	audioDump bool
}

var _ session.Submitter = (*Submitter)(nil)

// NewSubmitter wires a submitter from runtime config.
func NewSubmitter(client VoiceClient, cfg config.DebugConfig, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{client: client, logger: logger, audioDump: cfg.AudioDump}
}

// Submit packages rec and sends it with threadID. Empty recordings fail with
// packager.ErrEmptyRecording before the client is called.
func (s *Submitter) Submit(ctx context.Context, rec packager.Source, threadID string) (tutorapi.TutorVoiceResult, session.Submission, error) {
	audio, err := packager.Package(rec)
	if err != nil {
		s.logger.Warn("package recording failed", "error", err.Error())
		return tutorapi.TutorVoiceResult{}, session.Submission{}, err
	}

	sub := session.Submission{
		AudioBytes: audio.Size(),
		MIMEType:   audio.MIMEType,
		FileName:   audio.FileName,
	}
	s.logger.Debug("recording packaged",
		"recording_id", audio.SessionID,
		"bytes", audio.Size(),
		"chunks", audio.Chunks,
		"mime_type", audio.MIMEType,
	)
	s.writeDebugAudio(audio)

	result, err := s.client.SubmitVoice(ctx, audio, threadID)
	if err != nil {
		var subErr *tutorapi.SubmissionError
		if errors.As(err, &subErr) {
			sub.StatusCode = subErr.Status
		}
		return tutorapi.TutorVoiceResult{}, sub, err
	}
	sub.StatusCode = result.Status
	return result, sub, nil
}

// NewCapture builds the live recorder; onElapsed receives timer ticks.
func NewCapture(cfg config.Config, report capability.Report, logger *slog.Logger, onElapsed func(int)) *recorder.Recorder {
	deps := recorder.PulseDeps(cfg, logger)
	deps.OnElapsed = onElapsed
	deps.OnChunk = func(size int, total int64) {
		logger.Debug("recording chunk", "bytes", size, "total_bytes", total)
	}
	return recorder.New(deps, report, recorder.OptionsFromConfig(cfg.Recorder))
}

// writeDebugAudio writes the packaged upload when debug.audio_dump is enabled.
func (s *Submitter) writeDebugAudio(audio packager.EncodedAudio) {
	if !s.audioDump || audio.Size() == 0 {
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(audio.FileName), ".")
	if ext == "" {
		ext = "bin"
	}
	file, err := CreateDebugFile("audio", ext)
	if err != nil {
		s.logger.Warn("unable to create debug audio dump", "error", err.Error())
		return
	}
	defer file.Close()

	if _, err := file.Write(audio.Data); err != nil {
		s.logger.Warn("unable to write debug audio dump", "error", err.Error())
		return
	}
	s.logger.Debug("debug audio dump written", "path", file.Name())
}

// CreateDebugFile creates a timestamped debug artifact under state/lingua/debug.
func CreateDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "lingua", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME with the ~/.local/state fallback.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
