package recorder

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/logging"
)

type fakeSource struct {
	chunks   chan []byte
	residual []byte

	mu      sync.Mutex
	stopped bool
	stops   atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{chunks: make(chan []byte, 64)}
}

func (s *fakeSource) Chunks() <-chan []byte { return s.chunks }
func (s *fakeSource) SampleRate() int       { return 48000 }

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops.Add(1)
	if s.stopped {
		return nil
	}
	s.stopped = true
	if len(s.residual) > 0 {
		s.chunks <- s.residual
	}
	close(s.chunks)
	return nil
}

func (s *fakeSource) released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeTap struct {
	observed atomic.Int64
	closed   atomic.Bool
}

func (t *fakeTap) Observe(pcm []byte) { t.observed.Add(int64(len(pcm))) }
func (t *fakeTap) Close() error       { t.closed.Store(true); return nil }

// harness records every source and tap the recorder acquires.
type harness struct {
	mu      sync.Mutex
	sources []*fakeSource
	taps    []*fakeTap
	openErr error
	encErr  error
}

func (h *harness) deps() Deps {
	return Deps{
		Open: func(context.Context) (Source, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.openErr != nil {
				return nil, h.openErr
			}
			src := newFakeSource()
			h.sources = append(h.sources, src)
			return src, nil
		},
		NewEncoder: func(report capability.Report, sampleRate int) (Encoder, error) {
			if h.encErr != nil {
				return nil, h.encErr
			}
			return NewWAVEncoder(sampleRate), nil
		},
		NewTap: func(context.Context, int) Tap {
			h.mu.Lock()
			defer h.mu.Unlock()
			tap := &fakeTap{}
			h.taps = append(h.taps, tap)
			return tap
		},
		Logger: logging.Discard(),
	}
}

func (h *harness) source(i int) *fakeSource {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sources[i]
}

func (h *harness) tap(i int) *fakeTap {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.taps[i]
}

// live counts sources that were opened but not yet released.
func (h *harness) live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, src := range h.sources {
		if !src.released() {
			n++
		}
	}
	return n
}

var supported = capability.Report{RecordingSupported: true, Encoder: capability.EncoderWAV}

func fastOptions() Options {
	return Options{Timeslice: 5 * time.Millisecond, Tick: time.Hour}
}

func waitResult(t *testing.T, r *Recorder) Result {
	t.Helper()
	select {
	case res := <-r.Done():
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("recorder did not finalize")
		return Result{}
	}
}

func requireReleased(t *testing.T, h *harness, i int) {
	t.Helper()
	require.True(t, h.source(i).released(), "microphone stream released")
	require.True(t, h.tap(i).closed.Load(), "analysis tap closed")
}
