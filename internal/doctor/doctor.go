// Package doctor runs runtime readiness diagnostics for config, audio, encoders, playback, and the tutor API.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/lingua/internal/audio"
	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/logging"
	"github.com/rbright/lingua/internal/tutorapi"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "control socket directory available", "XDG_RUNTIME_DIR is empty; stop/status over IPC will not work"))

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkRecorder(ctx, cfg.Config, nil))

	if cfg.Config.Playback.Enable {
		if len(cfg.Config.Playback.PlayerCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Config.Playback.PlayerCmd.Argv, "player_cmd"))
		} else {
			checks = append(checks, checkBinary("pw-play", "tutor speech playback"))
		}
	}

	checks = append(checks, checkCommand(cfg.Config.Output.ClipboardCmd.Argv, "clipboard_cmd"))
	checks = append(checks, checkToken(tutorapi.TokenStoreFromConfig(cfg.Config.API), time.Now()))
	checks = append(checks, checkAPIHealth(ctx, cfg.Config.API))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	constraints := audio.Constraints{
		SampleRate:       cfg.Audio.SampleRate,
		EchoCancellation: cfg.Audio.EchoCancellation,
		NoiseSuppression: cfg.Audio.NoiseSuppression,
	}
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback, constraints)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Device.Processed() {
		message += " (echo-cancelled)"
	}
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRecorder runs the capability probe; a nil env uses the live system.
func checkRecorder(ctx context.Context, cfg config.Config, env capability.Environment) Check {
	report := capability.NewProber(cfg, env).Probe(ctx)
	if !report.RecordingSupported {
		return Check{Name: "recorder", Pass: false, Message: report.Reason}
	}
	if report.Encoder == capability.EncoderFFmpeg {
		return Check{Name: "recorder", Pass: true, Message: fmt.Sprintf("%s via ffmpeg %s", report.PreferredMIMEType, report.Codec)}
	}
	return Check{Name: "recorder", Pass: true, Message: "audio/wav via built-in encoder"}
}

// checkToken reports the token source and flags expired JWTs.
func checkToken(store tutorapi.TokenStore, now time.Time) Check {
	token, err := store.Token()
	if err != nil {
		return Check{Name: "api.token", Pass: false, Message: err.Error()}
	}
	if token == "" {
		return Check{Name: "api.token", Pass: false, Message: "no token configured; the tutor API will answer 401"}
	}
	expiresAt, ok := tutorapi.TokenExpiry(token)
	if !ok {
		return Check{Name: "api.token", Pass: true, Message: fmt.Sprintf("from %s", store.Source())}
	}
	if !expiresAt.After(now) {
		return Check{Name: "api.token", Pass: false, Message: fmt.Sprintf("token from %s expired at %s; sign in again", store.Source(), expiresAt.Format(time.RFC3339))}
	}
	return Check{Name: "api.token", Pass: true, Message: fmt.Sprintf("from %s, expires %s", store.Source(), expiresAt.Format(time.RFC3339))}
}

// checkAPIHealth probes the configured tutor health endpoint.
func checkAPIHealth(ctx context.Context, cfg config.APIConfig) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	client := tutorapi.New(cfg, nil, logging.Discard())
	url := strings.TrimRight(cfg.BaseURL, "/") + cfg.HealthPath
	if err := client.Health(ctx); err != nil {
		return Check{Name: "api.health", Pass: false, Message: fmt.Sprintf("%s: %v", url, err)}
	}
	return Check{Name: "api.health", Pass: true, Message: fmt.Sprintf("ready at %s", url)}
}
