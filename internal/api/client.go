// Package api is the HTTP client the CLI uses to talk to a running
// inboxlens server.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/inboxlens/inboxlens/internal/chunker"
)

const (
	defaultServerURL = "http://127.0.0.1:8787"
	httpTimeout      = 120 * time.Second
)

// Client talks to the inboxlens server.
type Client struct {
	http      *http.Client
	serverURL string
}

// NewClient creates an API client.
// Respects the INBOXLENS_URL env var, falls back to http://127.0.0.1:8787.
func NewClient() *Client {
	u := os.Getenv("INBOXLENS_URL")
	if u == "" {
		u = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: u,
	}
}

// NewClientURL creates an API client against an explicit base URL.
func NewClientURL(base string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: base,
	}
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Status holds the window accounting reported by the server.
type Status struct {
	Today     int    `json:"today"`
	Yesterday int    `json:"yesterday"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Summary   string `json:"summary"`
}

// Status fetches the current window accounting.
func (c *Client) Status() (*Status, error) {
	data, err := c.Get("/api/status")
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// Clear drops all indexed mail and conversation history.
func (c *Client) Clear() error {
	_, err := c.Post("/api/clear", nil)
	return err
}

// Refresh reloads the window from the server's mail source. Returns the
// number of stored documents.
func (c *Client) Refresh() (int, error) {
	data, err := c.Post("/api/refresh", nil)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Loaded int `json:"loaded"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("decode refresh response: %w", err)
	}
	return resp.Loaded, nil
}

// Ask runs a retrieval-backed question against the server.
func (c *Client) Ask(question string) (string, error) {
	data, err := c.Get("/api/ask?q=" + url.QueryEscape(question))
	if err != nil {
		return "", err
	}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode answer: %w", err)
	}
	return resp.Answer, nil
}

// Retrieve fetches raw chunks for a query without LLM synthesis.
func (c *Client) Retrieve(query string, topK int) ([]string, error) {
	path := "/api/retrieve?q=" + url.QueryEscape(query)
	if topK > 0 {
		path += fmt.Sprintf("&k=%d", topK)
	}
	data, err := c.Get(path)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Chunks []string `json:"chunks"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	return resp.Chunks, nil
}

// Ingest submits documents for chunking and indexing. Returns the number
// stored after retention filtering.
func (c *Client) Ingest(docs []chunker.Document) (int, error) {
	body, err := json.Marshal(map[string]any{"documents": docs})
	if err != nil {
		return 0, fmt.Errorf("marshal documents: %w", err)
	}
	data, err := c.Post("/api/ingest", body)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Stored int `json:"stored"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("decode ingest response: %w", err)
	}
	return resp.Stored, nil
}
