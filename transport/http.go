// Package transport performs the network calls issued by the client.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Methods issued by the client.
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
)

// ErrDecode indicates a response body that is not valid JSON.
var ErrDecode = errors.New("transport: decode response")

// Request is one network call.
type Request struct {
	Method string
	URL    string
	Body   map[string]any
}

// Response carries the decoded response body.
type Response struct {
	Data any
}

// Transport executes requests.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, req Request) (Response, error)

// Do calls fn.
func (fn Func) Do(ctx context.Context, req Request) (Response, error) {
	return fn(ctx, req)
}

// StatusError reports a non-2xx response. Data holds the decoded error body
// when it was JSON.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Data       any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: %s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// HTTP implements Transport over net/http with JSON bodies.
type HTTP struct {
	Client  *http.Client
	BaseURL string
	Header  http.Header
}

// NewHTTP returns an HTTP transport resolving relative URLs against baseURL.
func NewHTTP(baseURL string, client *http.Client) *HTTP {
	return &HTTP{Client: client, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Do implements Transport.
func (t *HTTP) Do(ctx context.Context, req Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = MethodGet
	}
	url := t.url(req.URL)

	var body io.Reader
	if req.Body != nil && method != MethodGet {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("transport: encode body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Response{}, fmt.Errorf("transport: build request: %w", err)
	}
	for key, values := range t.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("transport: read response: %w", err)
	}
	data, decodeErr := decode(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Data: data}
	}
	if decodeErr != nil {
		return Response{}, decodeErr
	}
	return Response{Data: data}, nil
}

func (t *HTTP) url(target string) string {
	if t.BaseURL == "" || strings.Contains(target, "://") {
		return target
	}
	return t.BaseURL + "/" + strings.TrimLeft(target, "/")
}

func decode(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var data any
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}
