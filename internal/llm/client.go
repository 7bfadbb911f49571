// Package llm talks to a local Ollama-compatible inference server.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-converter/internal/logging"
)

// DefaultEndpoint is where a local Ollama listens
const DefaultEndpoint = "http://localhost:11434"

// Config configures a Client
type Config struct {
	Endpoint    string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	Retry       RetryPolicy
}

// DefaultConfig returns settings for a local server
func DefaultConfig() Config {
	return Config{
		Endpoint:    DefaultEndpoint,
		Model:       "llama3",
		Timeout:     120 * time.Second,
		Temperature: 0.1,
		MaxTokens:   4000,
		Retry:       DefaultRetryPolicy(),
	}
}

// Model describes an installed model
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Status summarises server availability
type Status struct {
	Available bool    `json:"available"`
	Endpoint  string  `json:"endpoint"`
	Model     string  `json:"model"`
	Models    []Model `json:"models,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Client calls the inference server
type Client struct {
	cfg  Config
	http *http.Client
	log  logrus.FieldLogger
}

// NewClient creates a client; an empty endpoint falls back to DefaultEndpoint
func NewClient(cfg Config, logger logrus.FieldLogger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logging.Component(logger, "llm"),
	}
}

// Endpoint returns the server base URL
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

// Available reports whether the server answers the model listing
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Debug("inference server not reachable")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Models lists installed models
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	var out struct {
		Models []Model `json:"models"`
	}
	if err := c.doJSON(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	return out.Models, nil
}

// Status checks availability and lists models when reachable
func (c *Client) Status(ctx context.Context) Status {
	st := Status{Endpoint: c.cfg.Endpoint, Model: c.cfg.Model}
	if !c.Available(ctx) {
		return st
	}
	st.Available = true
	models, err := c.Models(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Models = models
	return st
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs a non-streaming completion with the configured model
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Options: generateOptions{
			Temperature: c.cfg.Temperature,
			NumPredict:  c.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out generateResponse
	if err := c.doJSON(ctx, req, &out); err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return out.Response, nil
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.cfg.Retry.do(ctx, c.http, req, c.log)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
