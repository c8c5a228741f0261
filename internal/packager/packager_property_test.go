package packager

import (
	"bytes"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rbright/lingua/internal/recorder"
)

func TestPackagedBytesEqualChunkConcatenation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("package preserves arrival order regardless of chunk sizes", prop.ForAll(
		func(chunks [][]byte) bool {
			session := recorder.NewSession("audio/ogg", time.Now())
			var want []byte
			for _, chunk := range chunks {
				if err := session.Append(chunk); err != nil {
					return false
				}
				want = append(want, chunk...)
			}
			session.Freeze()

			audio, err := Package(session)
			if len(want) == 0 {
				return err == ErrEmptyRecording
			}
			return err == nil && bytes.Equal(audio.Data, want)
		},
		gen.SliceOf(gen.SliceOf(gen.UInt8())),
	))

	properties.TestingRun(t)
}
