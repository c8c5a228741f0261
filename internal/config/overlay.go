package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// overlay is the on-disk config shape shared by the JSONC and TOML decoders.
// Pointer fields distinguish "absent" from zero values so defaults survive.
type overlay struct {
	API          *overlayAPI          `json:"api" toml:"api"`
	Audio        *overlayAudio        `json:"audio" toml:"audio"`
	Recorder     *overlayRecorder     `json:"recorder" toml:"recorder"`
	Playback     *overlayPlayback     `json:"playback" toml:"playback"`
	Output       *overlayOutput       `json:"output" toml:"output"`
	Indicator    *overlayIndicator    `json:"indicator" toml:"indicator"`
	Gamification *overlayGamification `json:"gamification" toml:"gamification"`
	Debug        *overlayDebug        `json:"debug" toml:"debug"`
	Logging      *overlayLogging      `json:"logging" toml:"logging"`
}

type overlayAPI struct {
	BaseURL    *string `json:"base_url" toml:"base_url"`
	VoicePath  *string `json:"voice_path" toml:"voice_path"`
	HealthPath *string `json:"health_path" toml:"health_path"`
	TimeoutMS  *int    `json:"timeout_ms" toml:"timeout_ms"`
	Token      *string `json:"token" toml:"token"`
	TokenEnv   *string `json:"token_env" toml:"token_env"`
	TokenFile  *string `json:"token_file" toml:"token_file"`
}

type overlayAudio struct {
	Input            *string `json:"input" toml:"input"`
	Fallback         *string `json:"fallback" toml:"fallback"`
	EchoCancellation *bool   `json:"echo_cancellation" toml:"echo_cancellation"`
	NoiseSuppression *bool   `json:"noise_suppression" toml:"noise_suppression"`
	SampleRate       *int    `json:"sample_rate" toml:"sample_rate"`
}

type overlayRecorder struct {
	Encoder         *string     `json:"encoder" toml:"encoder"`
	FFmpegPath      *string     `json:"ffmpeg_path" toml:"ffmpeg_path"`
	MIMEPreference  *stringList `json:"mime_preference" toml:"mime_preference"`
	TimesliceMS     *int        `json:"timeslice_ms" toml:"timeslice_ms"`
	MaxSeconds      *int        `json:"max_seconds" toml:"max_seconds"`
	LevelIntervalMS *int        `json:"level_interval_ms" toml:"level_interval_ms"`
}

type overlayPlayback struct {
	Enable    *bool   `json:"enable" toml:"enable"`
	AutoPlay  *bool   `json:"auto_play" toml:"auto_play"`
	PlayerCmd *string `json:"player_cmd" toml:"player_cmd"`
}

type overlayOutput struct {
	ClipboardCmd *string `json:"clipboard_cmd" toml:"clipboard_cmd"`
}

type overlayIndicator struct {
	Enable            *bool   `json:"enable" toml:"enable"`
	DesktopAppName    *string `json:"desktop_app_name" toml:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable" toml:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file" toml:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file" toml:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file" toml:"sound_complete_file"`
	SoundErrorFile    *string `json:"sound_error_file" toml:"sound_error_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" toml:"error_timeout_ms"`
}

type overlayGamification struct {
	XPPerTurn *int `json:"xp_per_turn" toml:"xp_per_turn"`
}

type overlayDebug struct {
	Panel     *bool `json:"panel" toml:"panel"`
	AudioDump *bool `json:"audio_dump" toml:"audio_dump"`
}

type overlayLogging struct {
	Level *string `json:"level" toml:"level"`
}

// stringList accepts either a string array or a comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

// UnmarshalTOML implements toml.Unmarshaler for the same two shapes.
func (l *stringList) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case string:
		*l = splitList(v)
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string array or comma-delimited string")
			}
			out = append(out, s)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("expected string array or comma-delimited string")
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (payload overlay) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if api := payload.API; api != nil {
		setString(&cfg.API.BaseURL, api.BaseURL)
		setString(&cfg.API.VoicePath, api.VoicePath)
		setString(&cfg.API.HealthPath, api.HealthPath)
		setInt(&cfg.API.TimeoutMS, api.TimeoutMS)
		setString(&cfg.API.Token, api.Token)
		setString(&cfg.API.TokenEnv, api.TokenEnv)
		setString(&cfg.API.TokenFile, api.TokenFile)
	}

	if audio := payload.Audio; audio != nil {
		setString(&cfg.Audio.Input, audio.Input)
		setString(&cfg.Audio.Fallback, audio.Fallback)
		setBool(&cfg.Audio.EchoCancellation, audio.EchoCancellation)
		setBool(&cfg.Audio.NoiseSuppression, audio.NoiseSuppression)
		setInt(&cfg.Audio.SampleRate, audio.SampleRate)
	}

	if rec := payload.Recorder; rec != nil {
		setString(&cfg.Recorder.Encoder, rec.Encoder)
		setString(&cfg.Recorder.FFmpegPath, rec.FFmpegPath)
		if rec.MIMEPreference != nil {
			cfg.Recorder.MIMEPreference = cfg.Recorder.MIMEPreference[:0]
			for _, mime := range *rec.MIMEPreference {
				mime = strings.TrimSpace(mime)
				if mime == "" {
					continue
				}
				cfg.Recorder.MIMEPreference = append(cfg.Recorder.MIMEPreference, mime)
			}
			if len(cfg.Recorder.MIMEPreference) == 0 {
				warnings = append(warnings, Warning{Message: "recorder.mime_preference is empty; the built-in WAV encoder will always be used"})
			}
		}
		setInt(&cfg.Recorder.TimesliceMS, rec.TimesliceMS)
		setInt(&cfg.Recorder.MaxSeconds, rec.MaxSeconds)
		setInt(&cfg.Recorder.LevelIntervalMS, rec.LevelIntervalMS)
	}

	if pb := payload.Playback; pb != nil {
		setBool(&cfg.Playback.Enable, pb.Enable)
		setBool(&cfg.Playback.AutoPlay, pb.AutoPlay)
		if pb.PlayerCmd != nil {
			cmd, err := parseCommand("playback.player_cmd", *pb.PlayerCmd)
			if err != nil {
				return nil, err
			}
			cfg.Playback.PlayerCmd = cmd
		}
	}

	if out := payload.Output; out != nil && out.ClipboardCmd != nil {
		cmd, err := parseCommand("output.clipboard_cmd", *out.ClipboardCmd)
		if err != nil {
			return nil, err
		}
		cfg.Output.ClipboardCmd = cmd
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setString(&cfg.Indicator.DesktopAppName, ind.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, ind.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, ind.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, ind.SoundCompleteFile)
		setString(&cfg.Indicator.SoundErrorFile, ind.SoundErrorFile)
		setInt(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
	}

	if g := payload.Gamification; g != nil {
		setInt(&cfg.Gamification.XPPerTurn, g.XPPerTurn)
	}

	if d := payload.Debug; d != nil {
		setBool(&cfg.Debug.Panel, d.Panel)
		setBool(&cfg.Debug.AudioDump, d.AudioDump)
	}

	if l := payload.Logging; l != nil {
		setString(&cfg.Logging.Level, l.Level)
	}

	return warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
