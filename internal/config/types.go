// Package config resolves, parses, validates, and defaults lingua configuration.
package config

// Config is the fully materialized runtime configuration used by lingua.
type Config struct {
	API          APIConfig
	Audio        AudioConfig
	Recorder     RecorderConfig
	Playback     PlaybackConfig
	Output       OutputConfig
	Indicator    IndicatorConfig
	Gamification GamificationConfig
	Debug        DebugConfig
	Logging      LoggingConfig
}

// APIConfig locates the tutoring backend and the bearer token used against it.
type APIConfig struct {
	BaseURL    string
	VoicePath  string
	HealthPath string
	TimeoutMS  int
	Token      string
	TokenEnv   string
	TokenFile  string
}

// AudioConfig controls input-source selection and capture constraints.
type AudioConfig struct {
	Input            string
	Fallback         string
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// RecorderConfig controls encoder negotiation and chunk cadence.
type RecorderConfig struct {
	Encoder         string
	FFmpegPath      string
	MIMEPreference  []string
	TimesliceMS     int
	MaxSeconds      int
	LevelIntervalMS int
}

// PlaybackConfig controls tutor speech playback.
type PlaybackConfig struct {
	Enable    bool
	AutoPlay  bool
	PlayerCmd CommandConfig
}

// OutputConfig controls where copied tutor text goes.
type OutputConfig struct {
	ClipboardCmd CommandConfig
}

// IndicatorConfig controls desktop notifications and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundErrorFile    string
	ErrorTimeoutMS    int
}

// GamificationConfig controls the local per-session reward tally.
type GamificationConfig struct {
	XPPerTurn int
}

// DebugConfig controls the technical debug panel and debug artifact output.
type DebugConfig struct {
	Panel     bool
	AudioDump bool
}

// LoggingConfig controls the JSONL logger.
type LoggingConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
