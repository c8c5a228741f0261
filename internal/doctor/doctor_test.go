package doctor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/tutorapi"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "/run/user/1000")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.HasPrefix(v, "/run/") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "player_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-player")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-player", "--arg"}, "player_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "player_cmd command is available")
}

func TestCheckAPIHealthSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().API
	cfg.BaseURL = server.URL

	check := checkAPIHealth(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "ready at")
}

func TestCheckAPIHealthFailureStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().API
	cfg.BaseURL = server.URL

	check := checkAPIHealth(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 503")
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "learner-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestCheckToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	missing := checkToken(tutorapi.TokenStore{}, now)
	require.False(t, missing.Pass)
	require.Contains(t, missing.Message, "401")

	opaque := checkToken(tutorapi.TokenStore{Value: "opaque-token"}, now)
	require.True(t, opaque.Pass)
	require.Equal(t, "from api.token", opaque.Message)

	valid := checkToken(tutorapi.TokenStore{Value: signedToken(t, now.Add(time.Hour))}, now)
	require.True(t, valid.Pass)
	require.Contains(t, valid.Message, "expires 2026-03-01T13:00:00Z")

	expired := checkToken(tutorapi.TokenStore{Value: signedToken(t, now.Add(-time.Hour))}, now)
	require.False(t, expired.Pass)
	require.Contains(t, expired.Message, "sign in again")
}

func TestCheckTokenFromEnv(t *testing.T) {
	t.Setenv("LINGUA_DOCTOR_TOKEN", "abc")
	check := checkToken(tutorapi.TokenStore{Env: "LINGUA_DOCTOR_TOKEN"}, time.Now())
	require.True(t, check.Pass)
	require.Equal(t, "from $LINGUA_DOCTOR_TOKEN", check.Message)
}

type stubEnv struct {
	device   string
	err      error
	encoders map[string]bool
}

func (s stubEnv) CaptureDevice(context.Context) (string, error) { return s.device, s.err }
func (s stubEnv) LookPath(name string) (string, error)          { return "/usr/bin/" + name, nil }
func (s stubEnv) Encoders(context.Context, string) (map[string]bool, error) {
	return s.encoders, nil
}

func TestCheckRecorder(t *testing.T) {
	cfg := config.Default()

	ok := checkRecorder(context.Background(), cfg, stubEnv{device: "mic", encoders: map[string]bool{"libopus": true}})
	require.True(t, ok.Pass)
	require.Contains(t, ok.Message, "audio/webm;codecs=opus via ffmpeg libopus")

	wav := checkRecorder(context.Background(), cfg, stubEnv{device: "mic", encoders: map[string]bool{}})
	require.True(t, wav.Pass)
	require.Contains(t, wav.Message, "built-in encoder")

	fail := checkRecorder(context.Background(), cfg, stubEnv{err: errors.New("connection refused")})
	require.False(t, fail.Pass)
	require.NotEmpty(t, fail.Message)
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestRunUsesPlayerCmdOverrideCheck(t *testing.T) {
	binDir := t.TempDir()
	fakePlayer := filepath.Join(binDir, "fake-player")
	require.NoError(t, os.WriteFile(fakePlayer, []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Playback.PlayerCmd = config.CommandConfig{Raw: fakePlayer, Argv: []string{"fake-player"}}
	cfg.API.BaseURL = "http://127.0.0.1:1"

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true})
	require.NotEmpty(t, report.Checks)
	require.False(t, report.OK())

	names := map[string]bool{}
	for _, check := range report.Checks {
		names[check.Name] = true
	}
	require.True(t, names["fake-player"])
	require.False(t, names["pw-play"])
	require.True(t, names["recorder"])
	require.True(t, names["api.health"])
	require.True(t, names["api.token"])
}
