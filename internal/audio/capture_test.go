package audio

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkSizeBytes(t *testing.T) {
	require.Equal(t, 1920, chunkSizeBytes(48000))
	require.Equal(t, 640, chunkSizeBytes(16000))
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestCaptureOnPCMChunkingAndStopFlushesPending(t *testing.T) {
	size := chunkSizeBytes(48000)
	capture := &Capture{
		chunkSize: size,
		chunks:    make(chan []byte, 8),
		stopCh:    make(chan struct{}),
	}

	input := make([]byte, size+111)
	for i := range input {
		input[i] = byte(i % 255)
	}

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), capture.BytesCaptured())

	firstChunk := <-capture.Chunks()
	require.Len(t, firstChunk, size)
	require.Equal(t, input[:size], firstChunk)

	require.NoError(t, capture.Stop())

	remaining, ok := <-capture.Chunks()
	require.True(t, ok)
	require.Equal(t, input[size:], remaining)

	_, ok = <-capture.Chunks()
	require.False(t, ok)
}

func TestCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := &Capture{
		chunkSize: 4,
		chunks:    make(chan []byte, 1),
		stopCh:    make(chan struct{}),
	}
	close(capture.stopCh)

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.BytesCaptured())
}

func TestCaptureStopIsIdempotent(t *testing.T) {
	capture := &Capture{
		device: Device{ID: "mic-1", Description: "Mic"},
		chunks: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}
	require.Equal(t, "mic-1", capture.Device().ID)

	capture.Close()
	require.NoError(t, capture.Stop())
	_, ok := <-capture.Chunks()
	require.False(t, ok)
}

func TestStartCaptureRejectsEmptyDevice(t *testing.T) {
	_, err := StartCapture(context.Background(), Device{}, DefaultConstraints())
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestOpenFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, _, err := Open(context.Background(), "default", "default", DefaultConstraints())
	require.Error(t, err)
}
