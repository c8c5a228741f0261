package playback

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"sync"
)

type fakeHandle struct {
	id       int
	stopOnce sync.Once
	done     chan error
	stops    int
	mu       *sync.Mutex
	live     *int
}

func (h *fakeHandle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stops++
		*h.live--
		h.mu.Unlock()
		close(h.done)
	})
}

func (h *fakeHandle) Done() <-chan error { return h.done }

// finish simulates natural end of audio.
func (h *fakeHandle) finish() { h.Stop() }

type fakePlayer struct {
	mu      sync.Mutex
	started []string
	handles []*fakeHandle
	live    int
	maxLive int
	err     error
}

func (p *fakePlayer) Play(_ context.Context, _ []byte, mimeType string) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.live++
	if p.live > p.maxLive {
		p.maxLive = p.live
	}
	h := &fakeHandle{id: len(p.handles), done: make(chan error), mu: &p.mu, live: &p.live}
	p.started = append(p.started, mimeType)
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePlayer) snapshot() (started int, live int, maxLive int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.started), p.live, p.maxLive
}

func (p *fakePlayer) handle(i int) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles[i]
}

func wavBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], 16000)
	binary.LittleEndian.PutUint32(header[28:32], 32000)
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))
	return append(header, pcm...)
}

func wavBase64() string {
	return base64.StdEncoding.EncodeToString(wavBytes([]int16{0, 1200, -1200, 300}))
}
