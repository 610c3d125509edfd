// Package transcription talks to the remote transcription service: one JSON
// request carrying the encoded audio, one response carrying the encoded
// subtitle track.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"subtitle-burner/internal/domain"
)

const defaultRequestTimeout = 5 * time.Minute

// ErrIncompleteResponse marks a reply without a usable subtitles field.
// This is an application-level outcome, distinct from transport failures.
var ErrIncompleteResponse = errors.New("transcription response missing subtitles")

// NetworkError reports that the service could not be reached at all.
type NetworkError struct {
	Err error
}

// Error formats the transport failure.
func (e *NetworkError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("transcription service unreachable: %v", e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ServerError reports a non-success response, carrying any detail the server
// included in its error body.
type ServerError struct {
	StatusCode int
	Detail     string
}

// Error formats the server failure.
func (e *ServerError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return fmt.Sprintf("transcription service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("transcription service returned status %d: %s", e.StatusCode, e.Detail)
}

// Options carries per-request hints forwarded to the service.
type Options struct {
	SampleRateHint   string
	OutputFolderHint string
}

// Result is the decoded success payload of one transcription exchange.
type Result struct {
	SubtitlePayload domain.EncodedPayload
}

type transcribeRequest struct {
	Audio        string `json:"audio"`
	SampleRate   string `json:"sample_rate"`
	OutputFolder string `json:"output_folder"`
}

type transcribeResponse struct {
	Subtitles string `json:"subtitles"`
	Error     string `json:"error"`
}

// Client sends encoded audio to the transcription endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (for tests and custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a client for the given endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe sends one encoded audio payload and awaits one response.
// The success path requires a recognizable subtitles field; anything else is
// ErrIncompleteResponse rather than a partially populated result.
func (c *Client) Transcribe(ctx context.Context, payload domain.EncodedPayload, opts Options) (Result, error) {
	if c.endpoint == "" {
		return Result{}, &NetworkError{Err: errors.New("endpoint is not configured")}
	}

	body, err := json.Marshal(transcribeRequest{
		Audio:        string(payload),
		SampleRate:   opts.SampleRateHint,
		OutputFolder: opts.OutputFolderHint,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &ServerError{
			StatusCode: resp.StatusCode,
			Detail:     serverErrorDetail(respBody),
		}
	}

	var decoded transcribeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return Result{}, fmt.Errorf("%w: body is not valid JSON", ErrIncompleteResponse)
	}
	if strings.TrimSpace(decoded.Subtitles) == "" {
		return Result{}, ErrIncompleteResponse
	}

	if c.logger != nil {
		c.logger.Info("transcription received",
			slog.Int("payload_len", len(payload)),
			slog.Int("subtitles_len", len(decoded.Subtitles)),
		)
	}
	return Result{SubtitlePayload: domain.EncodedPayload(decoded.Subtitles)}, nil
}

// serverErrorDetail extracts the error field from a JSON error body, falling
// back to the raw body for non-JSON replies.
func serverErrorDetail(body []byte) string {
	var decoded transcribeResponse
	if err := json.Unmarshal(body, &decoded); err == nil && strings.TrimSpace(decoded.Error) != "" {
		return strings.TrimSpace(decoded.Error)
	}

	detail := strings.TrimSpace(string(body))
	if len(detail) > 300 {
		detail = detail[:300] + "..."
	}
	return detail
}
