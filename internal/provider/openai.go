package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikePfunk28/intelhub/internal/normalize"
)

// DefaultEndpoint is the OpenAI embeddings endpoint. Any API-compatible
// server can be substituted via config.
const DefaultEndpoint = "https://api.openai.com/v1/embeddings"

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// maxInputChars re-truncates input defensively before the call, even when the
// caller already capped it (normalize.MaxChars happens to match).
const maxInputChars = normalize.MaxChars

// OpenAIEmbedder calls an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	apiKey     string
	endpoint   string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewOpenAIEmbedder creates a client. endpoint and model fall back to the
// OpenAI defaults when empty. The API key may be empty; calls then fail with
// ErrNotConfigured so keyword-only operation keeps working.
func NewOpenAIEmbedder(apiKey, endpoint, model string, dimensions int, timeout time.Duration) *OpenAIEmbedder {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	if dimensions <= 0 {
		dimensions = 1536
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		apiKey:     apiKey,
		endpoint:   endpoint,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns the embedding for one text.
func (c *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding provider returned %d vectors for 1 input", len(vecs))
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one API call. Retry and backoff are the caller's
// policy; this client surfaces the first failure as-is.
func (c *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = normalize.Truncate(t, maxInputChars)
	}

	body, err := json.Marshal(embeddingRequest{Input: input, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding API call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{Status: resp.StatusCode, Body: string(b)}
	}

	var apiResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	vecs := make([][]float32, len(texts))
	for _, d := range apiResp.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("embedding provider returned no vector for input %d", i)
		}
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (c *OpenAIEmbedder) Dimensions() int {
	return c.dimensions
}

// Close is a no-op; the HTTP client holds no resources needing cleanup.
func (c *OpenAIEmbedder) Close() error {
	return nil
}
