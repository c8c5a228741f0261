package audio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// chunkDurationMS is the PCM fragment size requested from Pulse.
const chunkDurationMS = 20

// chunkSizeBytes returns the byte length of one mono s16 fragment at rate.
func chunkSizeBytes(sampleRate int) int {
	return sampleRate / 1000 * chunkDurationMS * 2
}

// Capture streams fixed-size mono s16le PCM chunks from one selected Pulse source.
type Capture struct {
	device     Device
	sampleRate int
	chunkSize  int

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// Open selects a device for the configured input preferences and starts capture on it.
func Open(ctx context.Context, input string, fallback string, constraints Constraints) (*Capture, Selection, error) {
	selection, err := SelectDevice(ctx, input, fallback, constraints)
	if err != nil {
		return nil, Selection{}, Classify(err)
	}
	capture, err := StartCapture(ctx, selection.Device, constraints)
	if err != nil {
		return nil, selection, err
	}
	return capture, selection, nil
}

// StartCapture creates and starts a mono s16 record stream at the constraint sample rate.
func StartCapture(ctx context.Context, selected Device, constraints Constraints) (*Capture, error) {
	if strings.TrimSpace(selected.ID) == "" {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, errEmptyDeviceID)
	}
	rate := constraints.SampleRate
	if rate <= 0 {
		rate = DefaultConstraints().SampleRate
	}

	client, err := newClient()
	if err != nil {
		return nil, Classify(err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, Classify(fmt.Errorf("resolve source %q: %w", selected.ID, err))
	}

	capture := &Capture{
		device:     selected,
		sampleRate: rate,
		chunkSize:  chunkSizeBytes(rate),
		client:     client,
		chunks:     make(chan []byte, 256),
		stopCh:     make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(rate),
		pulse.RecordBufferFragmentSize(uint32(capture.chunkSize)),
		pulse.RecordMediaName("lingua voice practice"),
	)
	if err != nil {
		capture.Close()
		return nil, Classify(fmt.Errorf("create pulse record stream: %w", err))
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// SampleRate reports the stream rate in Hz.
func (c *Capture) SampleRate() int {
	return c.sampleRate
}

// Chunks returns the PCM stream as fixed-size byte slices.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Stop halts the stream, releases the Pulse connection, flushes residual
// PCM, and closes Chunks exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := append([]byte(nil), c.pending...)
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		select {
		case c.chunks <- pending:
		default:
		}
	}

	close(c.chunks)
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw Pulse frames and emits chunkSize slices to c.chunks.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	size := c.chunkSize
	if size <= 0 {
		size = chunkSizeBytes(DefaultConstraints().SampleRate)
	}
	c.pending = append(c.pending, buffer...)

	chunks := make([][]byte, 0, len(c.pending)/size)
	for len(c.pending) >= size {
		chunk := make([]byte, size)
		copy(chunk, c.pending[:size])
		c.pending = c.pending[size:]
		chunks = append(chunks, chunk)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
