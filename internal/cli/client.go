// Package cli implements agentctl, the command line client for the
// CourseForge front-ends.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Result lines carry whole course documents, far beyond bufio's default
// 64 KiB token limit.
const maxStreamLineBytes = 4 << 20

// ChatRequest is one chat turn sent to a front-end. Empty identity fields
// are omitted so the server applies its own defaults.
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// StreamRecord is one NDJSON line of a streaming chat response.
type StreamRecord struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Feedback is a user rating for an agent run.
type Feedback struct {
	Score  float64 `json:"score"`
	Text   string  `json:"text,omitempty"`
	RunID  string  `json:"run_id,omitempty"`
	UserID string  `json:"user_id,omitempty"`
}

// Client talks to a CourseForge front-end over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient returns a client for the front-end at addr.
func NewClient(addr string, timeout time.Duration) *Client {
	c := resty.New()
	c.SetBaseURL(addr)
	c.SetTimeout(timeout)

	return &Client{http: c}
}

// Ask sends one buffered chat turn and returns the aggregated reply.
func (c *Client) Ask(ctx context.Context, req ChatRequest) (string, error) {
	var out struct {
		Response string `json:"response"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	return out.Response, nil
}

// Stream sends one streaming chat turn and invokes onRecord for every NDJSON
// line as it arrives. It returns after the server closes the stream.
func (c *Client) Stream(ctx context.Context, req ChatRequest, onRecord func(StreamRecord)) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetDoNotParseResponse(true).
		Post("/api/chat_stream")
	if err != nil {
		return fmt.Errorf("send stream request: %w", err)
	}
	body := resp.RawBody()
	defer func() {
		_ = body.Close()
	}()

	if resp.StatusCode() != http.StatusOK {
		data, _ := io.ReadAll(body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), strings.TrimSpace(string(data)))
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec StreamRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decode stream line: %w", err)
		}
		onRecord(rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	return nil
}

// SendFeedback submits a feedback score for a run.
func (c *Client) SendFeedback(ctx context.Context, fb Feedback) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(fb).
		Post("/feedback")
	if err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	return nil
}
