// Package recorder owns the microphone for one utterance at a time: it feeds
// captured PCM through an encoder, accumulates data-available chunks on a
// bounded interval, and finalizes asynchronously on Stop.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/lingua/internal/audio"
	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/config"
)

// Source is a live PCM capture. Stop releases the device and closes Chunks.
type Source interface {
	Chunks() <-chan []byte
	Stop() error
	SampleRate() int
}

// Tap observes PCM for diagnostics only.
type Tap interface {
	Observe(pcm []byte)
	Close() error
}

// Result is delivered once per session after the final flush.
type Result struct {
	Session *RecordingSession
	// Reason is "stop", "max-duration", or "cancelled".
	Reason string
	Err    error
}

// Deps are the runtime collaborators; tests substitute fakes.
type Deps struct {
	Open       func(ctx context.Context) (Source, error)
	NewEncoder EncoderFactory
	NewTap     func(ctx context.Context, sampleRate int) Tap
	Logger     *slog.Logger
	Now        func() time.Time

	// OnChunk runs on the recording goroutine after each data-available chunk.
	OnChunk func(size int, total int64)
	// OnElapsed runs on the recording goroutine once per timer tick.
	OnElapsed func(seconds int)
}

// Options bound the recording cadence.
type Options struct {
	Timeslice   time.Duration
	Tick        time.Duration
	MaxDuration time.Duration
}

// OptionsFromConfig maps recorder config onto Options.
func OptionsFromConfig(cfg config.RecorderConfig) Options {
	return Options{
		Timeslice:   time.Duration(cfg.TimesliceMS) * time.Millisecond,
		Tick:        time.Second,
		MaxDuration: time.Duration(cfg.MaxSeconds) * time.Second,
	}
}

// PulseDeps wires the live Pulse capture and level tap.
func PulseDeps(cfg config.Config, logger *slog.Logger) Deps {
	constraints := audio.Constraints{
		SampleRate:       cfg.Audio.SampleRate,
		EchoCancellation: cfg.Audio.EchoCancellation,
		NoiseSuppression: cfg.Audio.NoiseSuppression,
	}
	interval := time.Duration(cfg.Recorder.LevelIntervalMS) * time.Millisecond
	return Deps{
		Open: func(ctx context.Context) (Source, error) {
			capture, selection, err := audio.Open(ctx, cfg.Audio.Input, cfg.Audio.Fallback, constraints)
			if err != nil {
				return nil, err
			}
			if selection.Warning != "" {
				logger.Warn("audio device fallback", "warning", selection.Warning)
			}
			logger.Info("capture started", "device", selection.Device.ID, "sample_rate", capture.SampleRate())
			return capture, nil
		},
		NewEncoder: NewEncoder(cfg.Recorder.FFmpegPath),
		NewTap: func(ctx context.Context, sampleRate int) Tap {
			return audio.NewLevelTap(ctx, logger, sampleRate, interval)
		},
		Logger: logger,
	}
}

type phase int

const (
	phaseIdle phase = iota
	phaseStarting
	phaseRecording
	phaseFinalizing
)

// Recorder enforces at most one live session.
type Recorder struct {
	deps   Deps
	report capability.Report
	opts   Options

	mu      sync.Mutex
	phase   phase
	session *RecordingSession
	stopCh  chan string
	done    chan Result
}

// New creates a recorder gated by the capability report.
func New(deps Deps, report capability.Report, opts Options) *Recorder {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.Timeslice <= 0 {
		opts.Timeslice = time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	done := make(chan Result)
	close(done)
	return &Recorder{deps: deps, report: report, opts: opts, done: done}
}

// Start acquires the microphone and begins encoding. ctx bounds the whole
// recording, not just acquisition. The returned error is an *Error, or
// ErrSessionActive when a session already holds the device.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.report.RecordingSupported {
		return &Error{Kind: KindUnsupported, Err: ErrUnsupported}
	}

	r.mu.Lock()
	if r.phase != phaseIdle {
		r.mu.Unlock()
		return ErrSessionActive
	}
	r.phase = phaseStarting
	r.mu.Unlock()

	source, enc, err := r.acquire(ctx)
	if err != nil {
		r.mu.Lock()
		r.phase = phaseIdle
		r.mu.Unlock()
		r.deps.Logger.Warn("recording start failed", "kind", string(KindOf(err)), "error", err.Error())
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	var tap Tap
	if r.deps.NewTap != nil {
		tap = r.deps.NewTap(runCtx, source.SampleRate())
	}

	session := NewSession(enc.MIMEType(), r.deps.Now())
	stopCh := make(chan string, 1)
	done := make(chan Result, 1)

	r.mu.Lock()
	r.phase = phaseRecording
	r.session = session
	r.stopCh = stopCh
	r.done = done
	r.mu.Unlock()

	r.deps.Logger.Info("recording started", "session_id", session.ID(), "mime_type", session.MIMEType())
	go r.run(runCtx, cancel, session, source, enc, tap, stopCh, done)
	return nil
}

func (r *Recorder) acquire(ctx context.Context) (Source, Encoder, error) {
	if r.deps.Open == nil || r.deps.NewEncoder == nil {
		return nil, nil, &Error{Kind: KindGeneric, Err: errors.New("recorder is not wired")}
	}
	source, err := r.deps.Open(ctx)
	if err != nil {
		return nil, nil, classify(err)
	}
	enc, err := r.deps.NewEncoder(r.report, source.SampleRate())
	if err != nil {
		_ = source.Stop()
		return nil, nil, &Error{Kind: KindGeneric, Err: fmt.Errorf("start encoder: %w", err)}
	}
	return source, enc, nil
}

// Stop requests finalization and returns immediately. The session is
// complete only once Done delivers.
func (r *Recorder) Stop() {
	r.requestStop("stop")
}

func (r *Recorder) requestStop(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != phaseRecording {
		return
	}
	r.phase = phaseFinalizing
	r.stopCh <- reason
}

func (r *Recorder) recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == phaseRecording
}

// Done delivers the result of the most recently started session. Before any
// session it is closed.
func (r *Recorder) Done() <-chan Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Active reports whether a session holds the microphone.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase != phaseIdle
}

// Elapsed reports whole seconds recorded by the current or last session.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return 0
	}
	return session.ElapsedSeconds()
}

// Session returns the current or last session.
func (r *Recorder) Session() *RecordingSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Recorder) run(
	ctx context.Context,
	cancel context.CancelFunc,
	session *RecordingSession,
	source Source,
	enc Encoder,
	tap Tap,
	stopCh <-chan string,
	done chan<- Result,
) {
	logger := r.deps.Logger.With("session_id", session.ID())
	result := Result{Session: session}

	slice := time.NewTicker(r.opts.Timeslice)
	tick := time.NewTicker(r.opts.Tick)

	teardown := func() {
		slice.Stop()
		tick.Stop()
		if err := source.Stop(); err != nil {
			logger.Warn("capture stop failed", "error", err.Error())
		}
		if tap != nil {
			_ = tap.Close()
		}
		cancel()
	}

	emit := func(chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		if err := session.Append(chunk); err != nil {
			return err
		}
		total := session.TotalBytes()
		logger.Debug("chunk available", "size", len(chunk), "total_bytes", total)
		if r.deps.OnChunk != nil {
			r.deps.OnChunk(len(chunk), total)
		}
		return nil
	}

	feed := func(pcm []byte) error {
		if tap != nil {
			tap.Observe(pcm)
		}
		return enc.Write(pcm)
	}

	var loopErr error
	chunks := source.Chunks()
loop:
	for {
		select {
		case reason := <-stopCh:
			result.Reason = reason
			break loop
		case <-ctx.Done():
			result.Reason = "cancelled"
			loopErr = ctx.Err()
			break loop
		case pcm, ok := <-chunks:
			if !ok {
				result.Reason = "cancelled"
				loopErr = errors.New("capture stream ended unexpectedly")
				if ctx.Err() != nil {
					loopErr = ctx.Err()
				}
				break loop
			}
			if err := feed(pcm); err != nil {
				loopErr = err
				break loop
			}
		case <-slice.C:
			out, err := enc.Flush()
			if err == nil {
				err = emit(out)
			}
			if err != nil {
				loopErr = err
				break loop
			}
		case <-tick.C:
			if !r.recording() {
				continue
			}
			seconds := session.tick()
			if r.deps.OnElapsed != nil {
				r.deps.OnElapsed(seconds)
			}
			if r.opts.MaxDuration > 0 && time.Duration(seconds)*time.Second >= r.opts.MaxDuration {
				logger.Info("recording reached max duration", "seconds", seconds)
				r.requestStop("max-duration")
			}
		}
	}

	// Timers stop before the device is drained so no tick lands after Stop.
	slice.Stop()
	tick.Stop()
	if loopErr == nil {
		// Source.Stop closes Chunks after flushing residual PCM.
		_ = source.Stop()
		for pcm := range chunks {
			if err := feed(pcm); err != nil {
				loopErr = err
				break
			}
		}
	}

	final, closeErr := enc.Close()
	if loopErr == nil {
		loopErr = closeErr
	}
	if loopErr == nil {
		loopErr = emit(final)
	}
	teardown()

	if loopErr != nil {
		session.Fail()
		result.Err = &Error{Kind: KindGeneric, Err: loopErr}
		logger.Error("recording failed", "error", loopErr.Error())
	} else {
		session.Freeze()
		logger.Info("recording finalized",
			"reason", result.Reason,
			"chunks", session.ChunkCount(),
			"total_bytes", session.TotalBytes(),
			"elapsed_s", session.ElapsedSeconds(),
		)
	}

	r.mu.Lock()
	r.phase = phaseIdle
	r.mu.Unlock()
	done <- result
	close(done)
}
