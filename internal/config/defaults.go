package config

// DefaultMIMEPreference is the encoder negotiation order, most preferred first.
var DefaultMIMEPreference = []string{
	"audio/webm;codecs=opus",
	"audio/ogg;codecs=opus",
	"audio/mp4",
}

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8000",
			VoicePath:  "/api/tutor/voice",
			HealthPath: "/health",
			TimeoutMS:  90000,
			TokenEnv:   "LINGUA_TOKEN",
		},
		Audio: AudioConfig{
			Input:            "default",
			Fallback:         "default",
			EchoCancellation: true,
			NoiseSuppression: true,
			SampleRate:       48000,
		},
		Recorder: RecorderConfig{
			Encoder:         "auto",
			FFmpegPath:      "ffmpeg",
			MIMEPreference:  append([]string(nil), DefaultMIMEPreference...),
			TimesliceMS:     1000,
			MaxSeconds:      120,
			LevelIntervalMS: 100,
		},
		Playback: PlaybackConfig{
			Enable:   true,
			AutoPlay: false,
		},
		Output: OutputConfig{
			ClipboardCmd: CommandConfig{Raw: "wl-copy --type text/plain", Argv: []string{"wl-copy", "--type", "text/plain"}},
		},
		Indicator: IndicatorConfig{
			Enable:         false,
			DesktopAppName: "lingua",
			SoundEnable:    true,
			ErrorTimeoutMS: 2400,
		},
		Gamification: GamificationConfig{XPPerTurn: 10},
		Debug:        DebugConfig{},
		Logging:      LoggingConfig{Level: "info"},
	}
}
