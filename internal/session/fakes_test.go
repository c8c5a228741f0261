package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/packager"
	"github.com/rbright/lingua/internal/recorder"
	"github.com/rbright/lingua/internal/tutorapi"
)

var supported = capability.Report{RecordingSupported: true, PreferredMIMEType: "audio/webm;codecs=opus", Encoder: capability.EncoderFFmpeg}

type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	chunks   [][]byte
	starts   int
	stops    int
	session  *recorder.RecordingSession
	done     chan recorder.Result
	sent     bool
	// holdFlush keeps Stop from delivering the final flush; tests call finish.
	holdFlush bool
}

func (f *fakeCapture) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.session = recorder.NewSession("audio/webm;codecs=opus", time.Now())
	for _, chunk := range f.chunks {
		_ = f.session.Append(chunk)
	}
	f.done = make(chan recorder.Result, 1)
	f.sent = false
	return nil
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	f.stops++
	hold := f.holdFlush
	f.mu.Unlock()
	if hold {
		return
	}
	f.finish("stop", nil)
}

// finish delivers the final flush as the recorder would.
func (f *fakeCapture) finish(reason string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil || f.sent {
		return
	}
	f.sent = true
	if err != nil {
		f.session.Fail()
	} else {
		f.session.Freeze()
	}
	f.done <- recorder.Result{Session: f.session, Reason: reason, Err: err}
	close(f.done)
}

func (f *fakeCapture) Done() <-chan recorder.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *fakeCapture) counts() (starts int, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type submitCall struct {
	threadID   string
	totalBytes int64
	chunks     int
}

type fakeSubmitter struct {
	mu     sync.Mutex
	calls  []submitCall
	result tutorapi.TutorVoiceResult
	err    error
}

func (f *fakeSubmitter) Submit(_ context.Context, rec packager.Source, threadID string) (tutorapi.TutorVoiceResult, Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submitCall{threadID: threadID, totalBytes: rec.TotalBytes(), chunks: len(rec.Chunks())})
	sub := Submission{AudioBytes: int(rec.TotalBytes()), MIMEType: rec.MIMEType(), StatusCode: f.result.Status}
	var subErr *tutorapi.SubmissionError
	if errors.As(f.err, &subErr) {
		sub.StatusCode = subErr.Status
	}
	if f.err != nil {
		return tutorapi.TutorVoiceResult{}, sub, f.err
	}
	return f.result, sub, nil
}

func (f *fakeSubmitter) callList() []submitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submitCall(nil), f.calls...)
}

type fakePlayer struct {
	mu      sync.Mutex
	err     error
	plays   []string
	stops   int
	playing string
}

func (f *fakePlayer) Play(_ context.Context, id string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.plays = append(f.plays, id)
	if f.playing == id {
		f.playing = ""
		return nil
	}
	f.playing = id
	return nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.playing = ""
}

func (f *fakePlayer) Playing() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing, f.playing != ""
}

func (f *fakePlayer) playList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plays...)
}

type fakeIndicator struct {
	recording  atomic.Int32
	processing atomic.Int32
	complete   atomic.Int32
	errors     atomic.Int32
	stopCues   atomic.Int32
	hides      atomic.Int32
	settles    atomic.Int32

	onSettle func()

	mu        sync.Mutex
	lastError string
}

func (f *fakeIndicator) ShowRecording(context.Context)        { f.recording.Add(1) }
func (f *fakeIndicator) ShowProcessing(context.Context)       { f.processing.Add(1) }
func (f *fakeIndicator) ShowComplete(context.Context, string) { f.complete.Add(1) }
func (f *fakeIndicator) CueStop(context.Context)              { f.stopCues.Add(1) }
func (f *fakeIndicator) Hide(context.Context)                 { f.hides.Add(1) }

func (f *fakeIndicator) Settle(context.Context) {
	f.settles.Add(1)
	if f.onSettle != nil {
		f.onSettle()
	}
}

func (f *fakeIndicator) ShowError(_ context.Context, text string) {
	f.errors.Add(1)
	f.mu.Lock()
	f.lastError = text
	f.mu.Unlock()
}

type harness struct {
	capture   *fakeCapture
	submitter *fakeSubmitter
	player    *fakePlayer
	indicator *fakeIndicator
	rewards   *Tally
}

func newHarness() *harness {
	return &harness{
		capture: &fakeCapture{chunks: twelveChunks()},
		submitter: &fakeSubmitter{result: tutorapi.TutorVoiceResult{
			Transcript:   "I go to school",
			TutorMessage: "Nice!",
			Corrections:  []tutorapi.Correction{},
			SessionID:    "abc",
			Status:       200,
		}},
		player:    &fakePlayer{},
		indicator: &fakeIndicator{},
		rewards:   NewTally(),
	}
}

func (h *harness) controller(report capability.Report, prefs VoicePreferences) *Controller {
	return NewController(Deps{
		Capture:     h.capture,
		Submitter:   h.submitter,
		Player:      h.player,
		Indicator:   h.indicator,
		Rewards:     h.rewards,
		Preferences: prefs,
	}, report, Options{XPPerTurn: 10})
}

// twelveChunks is 48,000 bytes in 12 data-available events.
func twelveChunks() [][]byte {
	chunks := make([][]byte, 12)
	for i := range chunks {
		chunk := make([]byte, 4000)
		for j := range chunk {
			chunk[j] = byte(i)
		}
		chunks[i] = chunk
	}
	return chunks
}
