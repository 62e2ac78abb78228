// Package client is the typed HTTP client the dashboard uses to poll
// the orchestrator. Every call is a plain request/response; the
// dashboard re-polls on its own tick rather than holding a connection.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mi-lab/backend/internal/history"
	"github.com/mi-lab/backend/internal/session"
	"github.com/mi-lab/backend/internal/supervisor"
)

type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:8750").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetStatus fetches the current session status document.
func (c *Client) GetStatus() (session.Status, error) {
	var st session.Status
	err := c.get("/api/session/status", &st)
	return st, err
}

// GetFeedback fetches the current neurofeedback snapshot.
func (c *Client) GetFeedback() (session.Feedback, error) {
	var fb session.Feedback
	err := c.get("/api/session/feedback", &fb)
	return fb, err
}

// GetHealth fetches process liveness.
func (c *Client) GetHealth() (supervisor.Health, error) {
	var h supervisor.Health
	err := c.get("/api/session/health", &h)
	return h, err
}

// GetStreams fetches the discoverable biosignal sources.
func (c *Client) GetStreams() ([]session.Stream, error) {
	var streams []session.Stream
	err := c.get("/api/streams", &streams)
	return streams, err
}

// GetHistory fetches recently finished sessions.
func (c *Client) GetHistory() ([]history.Entry, error) {
	var entries []history.Entry
	err := c.get("/api/history", &entries)
	return entries, err
}

// StartSession requests a session start with the given config.
func (c *Client) StartSession(cfg session.Config) error {
	return c.post("/api/session/start", cfg)
}

// StopSession requests a session stop.
func (c *Client) StopSession() error {
	return c.post("/api/session/stop", nil)
}

func (c *Client) get(path string, out any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	resp, err := c.client.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return nil
}
