package playback

import (
	"encoding/binary"
	"errors"
	"fmt"
)

type wavInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Format        uint16
	PCM           []byte
}

// parseWAV walks RIFF chunks until the data chunk. A data size larger than
// the buffer (including the streaming 0xFFFFFFFF marker) is clamped.
func parseWAV(data []byte) (wavInfo, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("not a RIFF/WAVE payload")
	}

	var info wavInfo
	haveFmt := false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int64(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return wavInfo{}, errors.New("truncated fmt chunk")
			}
			info.Format = binary.LittleEndian.Uint16(data[body : body+2])
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return wavInfo{}, errors.New("data chunk before fmt chunk")
			}
			end := int64(body) + size
			if end > int64(len(data)) {
				end = int64(len(data))
			}
			info.PCM = data[body:end]
			return info, nil
		}

		next := int64(body) + size
		if size%2 != 0 {
			next++
		}
		if next > int64(len(data)) {
			break
		}
		pos = int(next)
	}
	return wavInfo{}, fmt.Errorf("missing data chunk")
}

// pcm16 reports whether the payload can be streamed without conversion.
func (w wavInfo) pcm16() bool {
	return w.Format == 1 && w.BitsPerSample == 16 && (w.Channels == 1 || w.Channels == 2) && w.SampleRate > 0
}

func (w wavInfo) samples() []int16 {
	out := make([]int16, len(w.PCM)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(w.PCM[i*2:]))
	}
	return out
}
