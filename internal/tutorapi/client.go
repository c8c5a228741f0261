// Package tutorapi is the client for the tutoring backend's voice endpoint.
package tutorapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/packager"
	"github.com/rbright/lingua/internal/version"
)

// maxResponseBytes bounds the body read; synthesized audio is the bulk.
const maxResponseBytes = 32 << 20

// Client submits packaged recordings to the tutor API.
type Client struct {
	baseURL    string
	voicePath  string
	healthPath string
	http       *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	now        func() time.Time

	// DebugSink receives each raw response body when set.
	DebugSink io.Writer
}

// New builds a client from API config. A nil tokens source sends every
// request unauthenticated.
func New(cfg config.APIConfig, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		voicePath:  cfg.VoicePath,
		healthPath: cfg.HealthPath,
		http:       &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
		now:        time.Now,
	}
}

// SubmitVoice uploads one recording as multipart field "file". A non-empty
// sessionID is sent as field "session_id" to continue a conversation. Every
// failure is a *SubmissionError.
func (c *Client) SubmitVoice(ctx context.Context, audio packager.EncodedAudio, sessionID string) (TutorVoiceResult, error) {
	body, contentType, err := encodeMultipart(audio, sessionID)
	if err != nil {
		return TutorVoiceResult{}, &SubmissionError{Kind: KindGeneric, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.voicePath, body)
	if err != nil {
		return TutorVoiceResult{}, &SubmissionError{Kind: KindGeneric, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if err := c.authorize(req); err != nil {
		return TutorVoiceResult{}, &SubmissionError{Kind: KindGeneric, Err: err}
	}

	started := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return TutorVoiceResult{}, &SubmissionError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TutorVoiceResult{}, &SubmissionError{Kind: KindNetwork, Status: resp.StatusCode, Detail: "response body truncated", Err: err}
	}
	if c.DebugSink != nil {
		_, _ = c.DebugSink.Write(append(raw, '\n'))
	}

	c.logger.Info("tutor voice response",
		"status", resp.StatusCode,
		"bytes_sent", audio.Size(),
		"mime_type", audio.MIMEType,
		"latency_ms", c.now().Sub(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TutorVoiceResult{}, statusError(resp.StatusCode, raw)
	}

	decoded, err := decodeVoiceResponse(raw)
	if err != nil {
		return TutorVoiceResult{}, &SubmissionError{Kind: KindMalformedResponse, Status: resp.StatusCode, Detail: err.Error(), Err: err}
	}
	result := decoded.result()
	result.Status = resp.StatusCode
	return result, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("resolve api token: %w", err)
	}
	if token == "" {
		c.logger.Debug("no api token configured; sending unauthenticated request")
		return nil
	}
	if exp, ok := TokenExpiry(token); ok && !exp.After(c.now()) {
		c.logger.Warn("api token appears expired", "expired_at", exp.UTC().Format(time.RFC3339))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// encodeMultipart writes the audio part with its container type and lets
// the writer choose the boundary.
func encodeMultipart(audio packager.EncodedAudio, sessionID string) (*bytes.Buffer, string, error) {
	if len(audio.Data) == 0 {
		return nil, "", errors.New("refusing to upload empty audio")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileName := audio.FileName
	if fileName == "" {
		fileName = packager.FileName(audio.MIMEType)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", audio.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}

	if sid := strings.TrimSpace(sessionID); sid != "" {
		if err := writer.WriteField("session_id", sid); err != nil {
			return nil, "", fmt.Errorf("write session_id field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
