package recorder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rbright/lingua/internal/capability"
)

// Encoder turns raw mono s16le PCM into container bytes. Flush drains the
// bytes produced so far; Close finalizes and returns the remainder.
type Encoder interface {
	MIMEType() string
	Write(pcm []byte) error
	Flush() ([]byte, error)
	Close() ([]byte, error)
}

// EncoderFactory builds the encoder for one session.
type EncoderFactory func(report capability.Report, sampleRate int) (Encoder, error)

// NewEncoder picks the ffmpeg encoder when the probe resolved a container
// type it can produce, otherwise the built-in WAV encoder.
func NewEncoder(ffmpegPath string) EncoderFactory {
	return func(report capability.Report, sampleRate int) (Encoder, error) {
		if report.Encoder == capability.EncoderFFmpeg && report.PreferredMIMEType != "" {
			format, ok := capability.LookupFormat(report.PreferredMIMEType)
			if !ok {
				return nil, fmt.Errorf("no ffmpeg recipe for %q", report.PreferredMIMEType)
			}
			return StartFFmpegEncoder(ffmpegPath, format, report.Codec, sampleRate)
		}
		return NewWAVEncoder(sampleRate), nil
	}
}

// WAVEncoder streams a RIFF/WAVE container. The size fields are written as
// 0xFFFFFFFF placeholders since the first chunk leaves before the length is
// known; packager.Package fills in the real sizes on the assembled file.
type WAVEncoder struct {
	sampleRate int
	header     bool
	buf        bytes.Buffer
	closed     bool
}

// NewWAVEncoder creates a mono 16-bit PCM WAV encoder.
func NewWAVEncoder(sampleRate int) *WAVEncoder {
	return &WAVEncoder{sampleRate: sampleRate}
}

func (e *WAVEncoder) MIMEType() string { return capability.MIMEWAV }

// Write buffers PCM, emitting the header ahead of the first sample so a
// recording with no audio encodes to zero bytes.
func (e *WAVEncoder) Write(pcm []byte) error {
	if e.closed {
		return fmt.Errorf("wav encoder is closed")
	}
	if len(pcm) == 0 {
		return nil
	}
	if !e.header {
		e.buf.Write(wavHeader(e.sampleRate))
		e.header = true
	}
	e.buf.Write(pcm)
	return nil
}

func (e *WAVEncoder) Flush() ([]byte, error) {
	if e.buf.Len() == 0 {
		return nil, nil
	}
	out := append([]byte(nil), e.buf.Bytes()...)
	e.buf.Reset()
	return out, nil
}

func (e *WAVEncoder) Close() ([]byte, error) {
	e.closed = true
	return e.Flush()
}

const (
	wavChannels      = 1
	wavBitsPerSample = 16
	wavUnknownSize   = 0xFFFFFFFF
)

func wavHeader(sampleRate int) []byte {
	blockAlign := wavChannels * wavBitsPerSample / 8
	byteRate := sampleRate * blockAlign

	h := make([]byte, 44)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], wavUnknownSize)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], wavChannels)
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], wavBitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], wavUnknownSize)
	return h
}
