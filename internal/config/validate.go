package config

import (
	"fmt"
	"net/url"
	"strings"
)

var knownMIMETypes = map[string]struct{}{
	"audio/webm;codecs=opus": {},
	"audio/webm":             {},
	"audio/ogg;codecs=opus":  {},
	"audio/ogg":              {},
	"audio/mp4":              {},
	"audio/wav":              {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("api.base_url must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("api.base_url must be an absolute http(s) URL")
	}
	if parsed.Scheme == "http" && !isLoopbackHost(parsed.Hostname()) {
		warnings = append(warnings, Warning{Message: "api.base_url uses plain http for a non-local host; the bearer token is sent unencrypted"})
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.API.VoicePath), "/") {
		return nil, fmt.Errorf("api.voice_path must start with '/'")
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.API.HealthPath), "/") {
		return nil, fmt.Errorf("api.health_path must start with '/'")
	}
	if cfg.API.TimeoutMS <= 0 {
		return nil, fmt.Errorf("api.timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.API.Token) != "" {
		warnings = append(warnings, Warning{Message: "api.token stores a credential in the config file; prefer api.token_env or api.token_file"})
	}

	switch cfg.Audio.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("audio.sample_rate must be one of: 8000, 16000, 32000, 48000")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Recorder.Encoder)) {
	case "auto", "ffmpeg", "wav":
	default:
		return nil, fmt.Errorf("recorder.encoder must be one of: auto, ffmpeg, wav")
	}
	if strings.TrimSpace(cfg.Recorder.FFmpegPath) == "" {
		return nil, fmt.Errorf("recorder.ffmpeg_path must not be empty")
	}
	for _, mime := range cfg.Recorder.MIMEPreference {
		if _, ok := knownMIMETypes[strings.ToLower(strings.TrimSpace(mime))]; !ok {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("recorder.mime_preference entry %q is not a known container; it will never be selected", mime)})
		}
	}
	if cfg.Recorder.TimesliceMS < 100 {
		return nil, fmt.Errorf("recorder.timeslice_ms must be >= 100")
	}
	if cfg.Recorder.MaxSeconds <= 0 {
		return nil, fmt.Errorf("recorder.max_seconds must be > 0")
	}
	if cfg.Recorder.LevelIntervalMS <= 0 {
		return nil, fmt.Errorf("recorder.level_interval_ms must be > 0")
	}

	if cfg.Playback.PlayerCmd.Raw != "" && len(cfg.Playback.PlayerCmd.Argv) == 0 {
		return nil, fmt.Errorf("playback.player_cmd is configured but empty")
	}
	if cfg.Playback.AutoPlay && !cfg.Playback.Enable {
		warnings = append(warnings, Warning{Message: "playback.auto_play has no effect while playback.enable=false"})
	}

	if len(cfg.Output.ClipboardCmd.Argv) == 0 {
		return nil, fmt.Errorf("output.clipboard_cmd must not be empty")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Gamification.XPPerTurn < 0 {
		return nil, fmt.Errorf("gamification.xp_per_turn must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
