package capability

import "strings"

// MIMEWAV labels output from the built-in WAV encoder.
const MIMEWAV = "audio/wav"

// Format describes how ffmpeg produces one negotiable container type.
type Format struct {
	MIMEType string
	// Codecs lists acceptable ffmpeg audio encoders, most preferred first.
	Codecs []string
	Muxer  string
	// Extra holds muxer flags required for non-seekable pipe output.
	Extra []string
}

var formats = map[string]Format{
	"audio/webm;codecs=opus": {MIMEType: "audio/webm;codecs=opus", Codecs: []string{"libopus", "opus"}, Muxer: "webm"},
	"audio/webm":             {MIMEType: "audio/webm", Codecs: []string{"libopus", "opus", "libvorbis"}, Muxer: "webm"},
	"audio/ogg;codecs=opus":  {MIMEType: "audio/ogg;codecs=opus", Codecs: []string{"libopus", "opus"}, Muxer: "ogg"},
	"audio/ogg":              {MIMEType: "audio/ogg", Codecs: []string{"libopus", "opus", "libvorbis"}, Muxer: "ogg"},
	"audio/mp4": {
		MIMEType: "audio/mp4",
		Codecs:   []string{"aac", "libfdk_aac"},
		Muxer:    "mp4",
		Extra:    []string{"-movflags", "frag_keyframe+empty_moov+default_base_moof"},
	},
}

// LookupFormat returns the ffmpeg recipe for a container type.
func LookupFormat(mimeType string) (Format, bool) {
	f, ok := formats[normalizeMIME(mimeType)]
	return f, ok
}

// FFmpegArgs renders the codec/muxer arguments for one resolved codec.
func (f Format) FFmpegArgs(codec string) []string {
	args := []string{"-c:a", codec}
	if codec == "opus" {
		// The native opus encoder is still flagged experimental.
		args = append(args, "-strict", "-2")
	}
	args = append(args, f.Extra...)
	return append(args, "-f", f.Muxer)
}

func normalizeMIME(mimeType string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(mimeType)), " ", "")
}
