package audio

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/lingua/internal/logging"
)

func pcmConstant(samples int, value int16) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}
	return out
}

func TestLevelTapRollComputesRMSAndPeak(t *testing.T) {
	tap := NewLevelTap(context.Background(), logging.Discard(), 16000, time.Hour)
	t.Cleanup(func() { _ = tap.Close() })

	tap.Observe(pcmConstant(160, 16384))

	level, ok := tap.roll()
	require.True(t, ok)
	require.InDelta(t, 20*math.Log10(0.5), level.RMSDBFS, 0.01)
	require.InDelta(t, 20*math.Log10(0.5), level.PeakDBFS, 0.01)
	require.Equal(t, level, tap.Last())

	_, ok = tap.roll()
	require.False(t, ok, "window resets after roll")
}

func TestLevelTapSilenceFloorsAtMinus120(t *testing.T) {
	tap := NewLevelTap(context.Background(), logging.Discard(), 48000, time.Hour)
	t.Cleanup(func() { _ = tap.Close() })

	tap.Observe(pcmConstant(480, 0))
	level, ok := tap.roll()
	require.True(t, ok)
	require.Equal(t, -120.0, level.RMSDBFS)
	require.Equal(t, 0.0, level.SpeechRatio())
}

func TestLevelTapCloseReleasesAndIgnoresLateObservations(t *testing.T) {
	tap := NewLevelTap(context.Background(), logging.Discard(), 48000, time.Millisecond)
	require.False(t, tap.Closed())

	require.NoError(t, tap.Close())
	require.NoError(t, tap.Close())
	require.True(t, tap.Closed())

	tap.Observe(pcmConstant(480, 1000))
	_, ok := tap.roll()
	require.False(t, ok)

	select {
	case <-tap.done:
	default:
		t.Fatal("reporting loop still running after Close")
	}
}

func TestLevelTapStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tap := NewLevelTap(ctx, logging.Discard(), 16000, time.Millisecond)
	cancel()

	select {
	case <-tap.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reporting loop did not exit on context cancel")
	}
	require.NoError(t, tap.Close())
}

func TestLevelSpeechRatio(t *testing.T) {
	require.Equal(t, 0.0, Level{}.SpeechRatio())
	require.Equal(t, 0.25, Level{SpeechFrames: 1, Frames: 4}.SpeechRatio())
}
