package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport is a shared helper for talking to LLM HTTP APIs. It owns the
// base URL and the static headers a backend requires (API key, version).
type Transport struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

// NewTransport creates a transport for baseURL. The http.Client carries no
// timeout of its own; per-attempt deadlines come from the request context so
// the cancellation manager stays in charge.
func NewTransport(baseURL string, headers map[string]string) *Transport {
	return &Transport{
		client:  &http.Client{},
		baseURL: baseURL,
		headers: headers,
	}
}

// PostJSON sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses and malformed payloads become internal errors carrying the
// status code.
func (t *Transport) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	resp, err := t.post(ctx, path, body)
	if err != nil {
		return AttemptError(ctx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewInternalError(readErrorBody(resp), resp.StatusCode, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewInternalError("malformed backend payload", resp.StatusCode, err)
	}
	return nil
}

// PostStream sends body as JSON and returns the open response body for SSE
// reading. The caller owns the body and must close it on every exit path.
func (t *Transport) PostStream(ctx context.Context, path string, body interface{}) (io.ReadCloser, error) {
	resp, err := t.post(ctx, path, body)
	if err != nil {
		return nil, AttemptError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorBody(resp)
		drainAndClose(resp.Body)
		return nil, NewInternalError(msg, resp.StatusCode, nil)
	}
	return resp.Body, nil
}

// GetJSON fetches path and decodes a 2xx response into out.
func (t *Transport) GetJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return NewInternalError("create request", 0, err)
	}
	t.applyHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return AttemptError(ctx, NewInternalError("http request", 0, err))
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewInternalError(readErrorBody(resp), resp.StatusCode, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewInternalError("malformed backend payload", resp.StatusCode, err)
	}
	return nil
}

func (t *Transport) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewInternalError("marshal request", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, NewInternalError("create request", 0, err)
	}
	t.applyHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewInternalError("http request", 0, err)
	}
	return resp, nil
}

func (t *Transport) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
}

func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	r.Close()
}

func readErrorBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, string(body))
}

// Timestamp converts a backend epoch-seconds field into a time.Time, falling
// back to now when the backend omits it.
func Timestamp(epochSeconds int64) time.Time {
	if epochSeconds <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(epochSeconds, 0).UTC()
}
