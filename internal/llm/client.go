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
)

// DefaultBatchSize is the number of tokens sent per embeddings request.
const DefaultBatchSize = 64

// Client calls an OpenAI-compatible embeddings endpoint.
// It satisfies embed.Provider and embed.Named.
type Client struct {
	BaseURL    string // e.g. https://api.openai.com/v1; "/embeddings" is appended
	APIKey     string
	Model      string
	Dimensions int // optional; sent when > 0
	BatchSize  int
	Timeout    time.Duration

	HTTPClient *http.Client
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ModelName returns the configured model, used to key cached vectors.
func (c *Client) ModelName() string {
	if c.Dimensions > 0 {
		return fmt.Sprintf("%s@%d", c.Model, c.Dimensions)
	}
	return c.Model
}

// Embed returns one vector per token, in input order.
func (c *Client) Embed(ctx context.Context, tokens []string) ([][]float32, error) {
	if c.BaseURL == "" || c.Model == "" {
		return nil, fmt.Errorf("llm: base URL and model required")
	}

	batch := c.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	out := make([][]float32, 0, len(tokens))
	for start := 0; start < len(tokens); start += batch {
		end := min(start+batch, len(tokens))
		vectors, err := c.embedBatch(ctx, tokens[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, input []string) ([][]float32, error) {
	payload, err := c.send(ctx, embeddingRequest{Model: c.Model, Input: input, Dimensions: c.Dimensions})
	if err != nil {
		return nil, err
	}
	if len(payload.Data) != len(input) {
		return nil, fmt.Errorf("llm: got %d embeddings for %d inputs", len(payload.Data), len(input))
	}

	vectors := make([][]float32, len(input))
	for _, d := range payload.Data {
		if d.Index < 0 || d.Index >= len(input) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("llm: bad embedding index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) send(ctx context.Context, body embeddingRequest) (*embeddingResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := strings.TrimSuffix(c.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	var payload embeddingResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("llm: status %d: %s", resp.StatusCode, snippet(data))
		}
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm: status %d: %s", resp.StatusCode, snippet(data))
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
