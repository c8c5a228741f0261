// Package packager assembles a finished recording into one uploadable resource.
package packager

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"

	"github.com/rbright/lingua/internal/recorder"
)

// DefaultMIMEType labels recordings whose encoder reported no type.
const DefaultMIMEType = "audio/webm"

// ErrEmptyRecording means zero bytes were captured; nothing is uploaded.
var ErrEmptyRecording = errors.New("recording is empty")

// EncodedAudio is the packaged upload payload.
type EncodedAudio struct {
	Data      []byte
	MIMEType  string
	FileName  string
	SessionID string
	Chunks    int
}

// Size reports the payload length in bytes.
func (a EncodedAudio) Size() int {
	return len(a.Data)
}

// Source is the read side of a frozen recording.
type Source interface {
	ID() string
	Chunks() [][]byte
	MIMEType() string
	TotalBytes() int64
}

var _ Source = (*recorder.RecordingSession)(nil)

// Package concatenates chunks in arrival order. It fails with
// ErrEmptyRecording before any assembly when the session captured nothing.
func Package(session Source) (EncodedAudio, error) {
	if isNilSource(session) || session.TotalBytes() <= 0 {
		return EncodedAudio{}, ErrEmptyRecording
	}

	chunks := session.Chunks()
	var buf bytes.Buffer
	buf.Grow(int(session.TotalBytes()))
	for _, chunk := range chunks {
		buf.Write(chunk)
	}
	if buf.Len() == 0 {
		return EncodedAudio{}, ErrEmptyRecording
	}

	mimeType := strings.TrimSpace(session.MIMEType())
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	data := buf.Bytes()
	if isWAV(mimeType) {
		finalizeWAVSizes(data)
	}

	return EncodedAudio{
		Data:      data,
		MIMEType:  mimeType,
		FileName:  FileName(mimeType),
		SessionID: session.ID(),
		Chunks:    len(chunks),
	}, nil
}

// FileName derives the multipart filename from the container label. It only
// aids server-side logging.
func FileName(mimeType string) string {
	switch baseType(mimeType) {
	case "audio/webm", "video/webm":
		return "recording.webm"
	case "audio/ogg":
		return "recording.ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "recording.mp4"
	case "audio/wav", "audio/wave", "audio/x-wav":
		return "recording.wav"
	default:
		return "recording.bin"
	}
}

func baseType(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	return base
}

func isWAV(mimeType string) bool {
	switch baseType(mimeType) {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return true
	default:
		return false
	}
}

// isNilSource also catches a nil *recorder.RecordingSession held in the
// interface.
func isNilSource(session Source) bool {
	if session == nil {
		return true
	}
	rs, ok := session.(*recorder.RecordingSession)
	return ok && rs == nil
}

// finalizeWAVSizes replaces the streaming placeholders in a canonical
// 44-byte WAV header with the real RIFF and data lengths. Anything that
// does not look like that header is left untouched.
func finalizeWAVSizes(data []byte) {
	const headerLen = 44
	if len(data) < headerLen || uint64(len(data)-8) > math.MaxUint32 {
		return
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		return
	}
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)-8))
	binary.LittleEndian.PutUint32(data[40:44], uint32(len(data)-headerLen))
}
