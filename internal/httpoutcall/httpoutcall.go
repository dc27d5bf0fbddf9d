// Package httpoutcall implements the HTTP Outcall Wrapper (spec §4.K): the
// only sanctioned way a canister-side component reaches the outside world.
// Every call runs through a required TransformFn so the platform's
// consensus model sees a single sanitized response shape no matter which
// replica made the call. Grounded on the teacher's http.Client usage in
// pkg/mcp/client.go (POST-JSON-decode-status-check) and on the
// size-limited-read idiom in pkg/mcp/handler.go's MaxRequestBodySize /
// openapi_client.go's maxResponseBodySize, with the retry loop adapted
// from the teacher's ticker-driven checkHealth/StartHealthMonitor pattern
// in pkg/mcp/gateway.go (poll, observe failure, note state, try again).
package httpoutcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
)

const (
	defaultMaxResponseBytes = 2 * 1024 * 1024
	defaultTimeout          = 30 * time.Second
	defaultMaxRetries       = 3
	defaultRetryDelay       = time.Second
)

// RawResponse is the untransformed HTTP response handed to TransformFn.
type RawResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// SanitizedResponse is what TransformFn reduces a RawResponse to: the
// minimal, replica-independent shape the canister logic actually needs.
type SanitizedResponse struct {
	StatusCode int
	Body       []byte
}

// TransformFn reduces a RawResponse into a SanitizedResponse. Required by
// the platform's consensus model: every replica performing the same
// outcall must derive the same sanitized bytes, so call sites never see
// a raw, unsanitized response. There is no default.
type TransformFn func(RawResponse) (SanitizedResponse, error)

// Config tunes a Wrapper. Zero values are replaced with the documented
// defaults by New.
type Config struct {
	MaxResponseBytes int64
	Timeout          time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	return c
}

// Wrapper performs outcalls through a required TransformFn, retrying
// transport failures and timeouts with exponential backoff.
type Wrapper struct {
	cfg       Config
	transform TransformFn
	client    *http.Client
}

// New builds a Wrapper. transform is required; New panics if it is nil,
// mirroring "required by the platform's consensus model, never defaulted."
func New(cfg Config, transform TransformFn) *Wrapper {
	if transform == nil {
		panic("httpoutcall: TransformFn is required")
	}
	cfg = cfg.withDefaults()
	return &Wrapper{
		cfg:       cfg,
		transform: transform,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Get performs a GET request.
func (w *Wrapper) Get(ctx context.Context, rawURL string, headers http.Header) (SanitizedResponse, error) {
	return w.Do(ctx, http.MethodGet, rawURL, headers, nil)
}

// PostJSON marshals payload as JSON and performs a POST request.
func (w *Wrapper) PostJSON(ctx context.Context, rawURL string, headers http.Header, payload any) (SanitizedResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SanitizedResponse{}, fmt.Errorf("marshaling JSON body: %w", err)
	}
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Content-Type", "application/json")
	return w.Do(ctx, http.MethodPost, rawURL, headers, body)
}

// Do performs an HTTP outcall, pre-validating the URL scheme, capping the
// response body, and retrying transport failures and timeouts with
// exponential backoff. Non-retryable failures (HTTP status >= 400,
// malformed URL, TransformFn error) return immediately.
func (w *Wrapper) Do(ctx context.Context, method, rawURL string, headers http.Header, body []byte) (SanitizedResponse, error) {
	if err := validateScheme(rawURL); err != nil {
		return SanitizedResponse{}, err
	}

	delay := w.cfg.RetryDelay
	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return SanitizedResponse{}, &bridgeerr.Timeout{Op: "http outcall: " + rawURL}
			case <-timer.C:
			}
			delay *= 2
		}

		resp, err := w.attempt(ctx, method, rawURL, headers, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !bridgeerr.IsRetryable(err) {
			return SanitizedResponse{}, err
		}
	}
	return SanitizedResponse{}, lastErr
}

func (w *Wrapper) attempt(ctx context.Context, method, rawURL string, headers http.Header, body []byte) (SanitizedResponse, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return SanitizedResponse{}, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	httpResp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return SanitizedResponse{}, &bridgeerr.Timeout{Op: "http outcall: " + rawURL}
		}
		return SanitizedResponse{}, &bridgeerr.RpcTransport{Cause: err}
	}
	defer httpResp.Body.Close()

	// Read one byte past the limit so a truncated body is detectable
	// rather than silently accepted as complete, the same guard the
	// teacher applies to inbound request bodies.
	limited := io.LimitReader(httpResp.Body, w.cfg.MaxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return SanitizedResponse{}, &bridgeerr.RpcTransport{Cause: err}
	}
	if int64(len(respBody)) > w.cfg.MaxResponseBytes {
		return SanitizedResponse{}, &bridgeerr.ResourceExhausted{
			Resource: "http response body",
			Limit:    int(w.cfg.MaxResponseBytes),
		}
	}

	if httpResp.StatusCode >= 400 {
		return SanitizedResponse{}, &bridgeerr.HttpStatus{Code: httpResp.StatusCode, Body: string(respBody)}
	}

	raw := RawResponse{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Body: respBody}
	sanitized, err := w.transform(raw)
	if err != nil {
		return SanitizedResponse{}, fmt.Errorf("transforming response: %w", err)
	}
	return sanitized, nil
}

func validateScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return bridgeerr.NewValidationError("url", "malformed: "+err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return bridgeerr.NewValidationError("url", "must use http or https scheme")
	}
	return nil
}
