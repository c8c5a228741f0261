package recorder

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/lingua/internal/fsm"
)

// RecordingSession accumulates encoded chunks for one utterance. Chunks are
// append-only while recording and read-only once frozen.
type RecordingSession struct {
	mu sync.RWMutex

	id             string
	state          fsm.State
	startedAt      time.Time
	elapsedSeconds int
	chunks         [][]byte
	mimeType       string
	totalBytes     int64
}

// NewSession creates a session in the recording state.
func NewSession(mimeType string, startedAt time.Time) *RecordingSession {
	return &RecordingSession{
		id:        uuid.NewString(),
		state:     fsm.StateRecording,
		startedAt: startedAt,
		mimeType:  mimeType,
	}
}

// Append adds one data-available chunk in arrival order. Empty chunks are
// ignored.
func (s *RecordingSession) Append(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != fsm.StateRecording {
		return ErrFrozen
	}
	if len(chunk) == 0 {
		return nil
	}
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
	s.totalBytes += int64(len(chunk))
	return nil
}

// Freeze moves the session to processing; further appends fail.
func (s *RecordingSession) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == fsm.StateRecording {
		s.state = fsm.StateProcessing
	}
}

// Fail marks the session as errored; it is also frozen.
func (s *RecordingSession) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fsm.StateError
}

// Frozen reports whether appends are rejected.
func (s *RecordingSession) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != fsm.StateRecording
}

func (s *RecordingSession) tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == fsm.StateRecording {
		s.elapsedSeconds++
	}
	return s.elapsedSeconds
}

func (s *RecordingSession) ID() string {
	return s.id
}

func (s *RecordingSession) State() fsm.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *RecordingSession) StartedAt() time.Time {
	return s.startedAt
}

func (s *RecordingSession) ElapsedSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsedSeconds
}

func (s *RecordingSession) MIMEType() string {
	return s.mimeType
}

func (s *RecordingSession) TotalBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalBytes
}

// ChunkCount reports how many data-available chunks were appended.
func (s *RecordingSession) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Chunks returns the chunk list. Callers must not mutate the returned slices.
func (s *RecordingSession) Chunks() [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks[:len(s.chunks):len(s.chunks)]
}
