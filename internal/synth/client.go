// Package synth provides the client for the remote speech-synthesis
// gateway. The gateway exposes two operations: a per-cue call returning
// raw MPEG audio and a batch call returning per-segment base64 results.
package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	speakPath      = "/v1/speak"
	speakBatchPath = "/v1/speak/batch"

	// maxErrorBodyBytes bounds how much of an error response is read back
	// for diagnostics.
	maxErrorBodyBytes = 4 << 10
)

// ErrEmptyText is returned when synthesis is requested for blank text.
var ErrEmptyText = errors.New("synth: empty text")

// APIError is a structured failure response from the gateway.
type APIError struct {
	StatusCode int    // HTTP status
	Reason     string // Error body from the gateway, if any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("synth: gateway returned %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("synth: gateway returned %d", e.StatusCode)
}

// Segment is one batch-synthesis input: the cue offset used to correlate
// results plus the text to speak.
type Segment struct {
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

// BatchResult is the outcome for a single segment of a batch call. Audio
// is decoded from the gateway's base64 payload; a failed segment carries
// ErrorReason instead.
type BatchResult struct {
	Offset      int
	Audio       []byte
	Success     bool
	ErrorReason string
}

// ClientConfig holds connection settings for the gateway.
type ClientConfig struct {
	BaseURL string        // Gateway base URL, e.g. https://speech.example.com
	APIKey  string        // Sent as "Authorization: Token <key>"
	Timeout time.Duration // Per-request bound; the player relies on this
}

// DefaultClientConfig returns sensible connection defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout: 30 * time.Second,
	}
}

// Client talks to the synthesis gateway over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a gateway client. The configured timeout is the only
// bound on a synthesis call; callers block on it otherwise.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("synth: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultClientConfig().Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type speakBatchRequest struct {
	Segments []Segment `json:"segments"`
	Voice    string    `json:"voice"`
}

type batchResultPayload struct {
	Offset  int    `json:"offset"`
	Audio   string `json:"audio,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

type speakBatchResponse struct {
	Results []batchResultPayload `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SynthesizeOne generates speech for a single cue's text and returns raw
// MPEG audio bytes.
func (c *Client) SynthesizeOne(ctx context.Context, text string, voice Voice) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()
	resp, err := c.post(ctx, speakPath, speakRequest{Text: text, Voice: string(voice)})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("synth: reading audio body: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("synth: gateway returned empty audio body")
	}

	log.Debug("Synthesized cue audio",
		"voice", voice,
		"chars", len(text),
		"bytes", len(audio),
		"elapsed", time.Since(start))
	return audio, nil
}

// SynthesizeBatch generates speech for all segments in one call. The
// returned slice holds one result per input segment, correlated by offset;
// per-segment failures are reported in the result, not as an error. An
// error is returned only when the batch call itself fails or the response
// is malformed (a result offset that was never requested, or a missing
// result for a requested offset).
func (c *Client) SynthesizeBatch(ctx context.Context, segments []Segment, voice Voice) ([]BatchResult, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := c.post(ctx, speakBatchPath, speakBatchRequest{Segments: segments, Voice: string(voice)})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var payload speakBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("synth: decoding batch response: %w", err)
	}

	requested := make(map[int]bool, len(segments))
	for _, seg := range segments {
		requested[seg.Offset] = false
	}

	results := make([]BatchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		seen, ok := requested[r.Offset]
		if !ok {
			return nil, fmt.Errorf("synth: batch response contains unrequested offset %d", r.Offset)
		}
		if seen {
			return nil, fmt.Errorf("synth: batch response contains duplicate offset %d", r.Offset)
		}
		requested[r.Offset] = true

		result := BatchResult{Offset: r.Offset, Success: r.Success, ErrorReason: r.Error}
		if r.Success {
			audio, err := base64.StdEncoding.DecodeString(r.Audio)
			if err != nil {
				// Treat undecodable audio as a per-segment failure so one
				// bad entry degrades to live synthesis instead of failing
				// the whole batch.
				result.Success = false
				result.ErrorReason = fmt.Sprintf("invalid base64 audio: %v", err)
			} else {
				result.Audio = audio
			}
		}
		results = append(results, result)
	}

	for offset, seen := range requested {
		if !seen {
			return nil, fmt.Errorf("synth: batch response missing result for offset %d", offset)
		}
	}

	log.Debug("Synthesized batch",
		"voice", voice,
		"segments", len(segments),
		"elapsed", time.Since(start))
	return results, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("synth: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("synth: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synth: request failed: %w", err)
	}
	return resp, nil
}

// errorFromResponse converts a non-2xx response into an *APIError, reading
// the JSON error body when the gateway provides one.
func (c *Client) errorFromResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload errorResponse
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Reason = payload.Error
	} else {
		apiErr.Reason = strings.TrimSpace(string(body))
	}
	return apiErr
}
