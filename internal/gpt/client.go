// Package gpt talks to an OpenAI-compatible chat-completion endpoint and
// turns its raw output into parseable exercise JSON. The client does one
// call and no decoding; retry policy belongs to the caller.
package gpt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"resty.dev/v3"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 30 * time.Second

// maxDiagnosticBody caps how much of an error body is kept for logs and
// error messages.
const maxDiagnosticBody = 512

// ErrTimeout reports a completion call that ran out of time. It is the
// only gateway failure worth retrying.
var ErrTimeout = errors.New("model endpoint timed out")

// StatusError reports a non-2xx response from the model endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model endpoint returned %d: %s", e.Status, e.Body)
}

// TransportError reports that the endpoint could not be reached at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "model endpoint unreachable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Client issues single-turn chat completions.
type Client struct {
	http    *resty.Client
	model   string
	timeout time.Duration
}

// NewClient configures a client for the given endpoint. A zero timeout
// selects DefaultTimeout.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: httpClient, model: model, timeout: timeout}
}

func (c *Client) Close() error { return c.http.Close() }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// envelope is the slice of the chat-completion response shape the service
// reads. The sanitizer reuses it to unwrap raw bodies.
type envelope struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user turn and returns the raw
// response body text. Interpreting the body is the sanitizer's job.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(callCtx).
		SetBody(chatRequest{
			Model:    c.model,
			Messages: []message{{Role: "user", Content: prompt}},
		}).
		Post("/chat/completions")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return "", &TransportError{Err: err}
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > maxDiagnosticBody {
			body = body[:maxDiagnosticBody] + "..."
		}
		slog.Error("model endpoint error", "status", resp.StatusCode(), "body", body)
		return "", &StatusError{Status: resp.StatusCode(), Body: body}
	}
	return resp.String(), nil
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
