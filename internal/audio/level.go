package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// vadMode is the WebRTC aggressiveness level (0 permissive .. 3 strict).
const vadMode = 2

// Level is one diagnostic reading from the tap.
type Level struct {
	RMSDBFS      float64
	PeakDBFS     float64
	SpeechFrames int
	Frames       int
}

// SpeechRatio reports the share of VAD frames classified as speech.
func (l Level) SpeechRatio() float64 {
	if l.Frames == 0 {
		return 0
	}
	return float64(l.SpeechFrames) / float64(l.Frames)
}

// LevelTap observes captured PCM and periodically logs input level and voice
// activity at debug level. It never influences recording control flow.
type LevelTap struct {
	logger     *slog.Logger
	sampleRate int
	frameBytes int

	mu         sync.Mutex
	vad        *webrtcvad.VAD
	sumSquares float64
	samples    int
	peak       float64
	frames     int
	speech     int
	carry      []byte
	last       Level
	closed     bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLevelTap starts the reporting loop. A VAD initialisation failure degrades
// the tap to level-only readings.
func NewLevelTap(ctx context.Context, logger *slog.Logger, sampleRate int, interval time.Duration) *LevelTap {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	tap := &LevelTap{
		logger:     logger,
		sampleRate: sampleRate,
		frameBytes: sampleRate / 100 * 2,
		done:       make(chan struct{}),
	}

	if vad, err := newVAD(sampleRate); err != nil {
		logger.Debug("level tap vad unavailable", "error", err.Error())
	} else {
		tap.vad = vad
	}

	loopCtx, cancel := context.WithCancel(ctx)
	tap.cancel = cancel
	go tap.loop(loopCtx, interval)
	return tap
}

func newVAD(sampleRate int) (*webrtcvad.VAD, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("vad does not support %d Hz", sampleRate)
	}
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("create vad: %w", err)
	}
	if err := vad.SetMode(vadMode); err != nil {
		return nil, fmt.Errorf("set vad mode: %w", err)
	}
	return vad, nil
}

// Observe folds one s16le mono PCM chunk into the current reading window.
func (t *LevelTap) Observe(pcm []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768
		t.sumSquares += s * s
		t.samples++
		if a := math.Abs(s); a > t.peak {
			t.peak = a
		}
	}

	if t.vad == nil || t.frameBytes <= 0 {
		return
	}
	t.carry = append(t.carry, pcm...)
	for len(t.carry) >= t.frameBytes {
		frame := t.carry[:t.frameBytes]
		active, err := t.vad.Process(t.sampleRate, frame)
		if err == nil {
			t.frames++
			if active {
				t.speech++
			}
		}
		t.carry = t.carry[t.frameBytes:]
	}
}

// Last returns the most recent completed reading.
func (t *LevelTap) Last() Level {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Closed reports whether the tap has been released.
func (t *LevelTap) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops the reporting loop and releases the VAD handle. Safe to call
// more than once.
func (t *LevelTap) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.vad = nil
	t.carry = nil
	t.mu.Unlock()

	t.cancel()
	<-t.done
	return nil
}

func (t *LevelTap) loop(ctx context.Context, interval time.Duration) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			level, ok := t.roll()
			if !ok {
				continue
			}
			t.logger.Debug("input level",
				"rms_dbfs", round1(level.RMSDBFS),
				"peak_dbfs", round1(level.PeakDBFS),
				"speech_ratio", round1(level.SpeechRatio()),
			)
		}
	}
}

// roll closes the current window and resets the accumulators.
func (t *LevelTap) roll() (Level, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.samples == 0 {
		return Level{}, false
	}

	level := Level{
		RMSDBFS:      toDBFS(math.Sqrt(t.sumSquares / float64(t.samples))),
		PeakDBFS:     toDBFS(t.peak),
		SpeechFrames: t.speech,
		Frames:       t.frames,
	}
	t.last = level
	t.sumSquares, t.samples, t.peak = 0, 0, 0
	t.frames, t.speech = 0, 0
	return level, true
}

func toDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return -120
	}
	db := 20 * math.Log10(amplitude)
	if db < -120 {
		return -120
	}
	return db
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
