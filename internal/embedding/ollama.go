package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is the default remote embedding model.
	DefaultOllamaModel = "all-minilm:l6-v2"

	// DefaultOllamaTimeout is the timeout for embedding requests.
	DefaultOllamaTimeout = 30 * time.Second

	// DefaultOllamaRateLimit caps request throughput so batch runs don't
	// flood a shared Ollama instance.
	DefaultOllamaRateLimit = 20.0

	// apiPathTags is the Ollama API endpoint for listing models.
	apiPathTags = "/api/tags"

	// apiPathEmbeddings is the Ollama API endpoint for generating embeddings.
	apiPathEmbeddings = "/api/embeddings"
)

// Ollama generates embeddings through the Ollama HTTP API. Pooling happens
// server side; the provider still applies the same normalization contract
// as the local path.
type Ollama struct {
	baseURL    string
	model      string
	dimensions int
	normalize  bool
	client     *http.Client
	limiter    *rate.Limiter
}

// OllamaOption configures an Ollama provider.
type OllamaOption func(*Ollama)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) OllamaOption {
	return func(p *Ollama) {
		p.baseURL = url
	}
}

// WithModel sets the embedding model.
func WithModel(model string) OllamaOption {
	return func(p *Ollama) {
		p.model = model
	}
}

// WithDimensions sets the expected vector dimensions. Zero (the default)
// accepts whatever the model returns.
func WithDimensions(dims int) OllamaOption {
	return func(p *Ollama) {
		p.dimensions = dims
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) OllamaOption {
	return func(p *Ollama) {
		p.client.Timeout = timeout
	}
}

// WithOllamaNormalize controls L2 normalization of returned embeddings.
func WithOllamaNormalize(normalize bool) OllamaOption {
	return func(p *Ollama) {
		p.normalize = normalize
	}
}

// WithRateLimit sets the maximum requests per second.
func WithRateLimit(rps float64) OllamaOption {
	return func(p *Ollama) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewOllama creates a new Ollama embedding provider. Normalization is on by
// default, matching the local provider.
func NewOllama(opts ...OllamaOption) *Ollama {
	p := &Ollama{
		baseURL:   DefaultOllamaURL,
		model:     DefaultOllamaModel,
		normalize: true,
		client:    &http.Client{Timeout: DefaultOllamaTimeout},
		limiter:   rate.NewLimiter(rate.Limit(DefaultOllamaRateLimit), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed generates an embedding for the given text.
func (p *Ollama) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Embedding{}, err
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return Embedding{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+apiPathEmbeddings, bytes.NewReader(body))
	if err != nil {
		return Embedding{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Embedding{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Embedding{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, formatErrorBody(resp.Body))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Embedding{}, fmt.Errorf("decoding response: %w", err)
	}

	if p.dimensions == 0 {
		p.dimensions = len(result.Embedding)
	} else if len(result.Embedding) != p.dimensions {
		return Embedding{}, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(result.Embedding), p.dimensions)
	}

	if p.normalize {
		Normalize(result.Embedding)
	}

	return Embedding{Vector: result.Embedding}, nil
}

// EmbedBatch generates embeddings for multiple texts, preserving input
// order. The Ollama embeddings API takes one prompt per request, so the
// batch is a sequential, rate-limited loop; any failure aborts the run.
func (p *Ollama) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, 0, len(texts))
	for i, text := range texts {
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding query %d: %w", i+1, err)
		}
		out = append(out, emb)
	}
	return out, nil
}

// ModelName returns the name of the embedding model.
func (p *Ollama) ModelName() string {
	return p.model
}

// Dimensions returns the vector dimensions, or 0 before the first response
// when no expectation was configured.
func (p *Ollama) Dimensions() int {
	return p.dimensions
}

// IsAvailable checks that Ollama is running and accessible.
func (p *Ollama) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+apiPathTags, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// formatErrorBody reads and formats the response body for error messages.
func formatErrorBody(body io.Reader) string {
	respBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(respBody)
}

// ollamaEmbedRequest is the request body for the Ollama embeddings API.
type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaEmbedResponse is the response from the Ollama embeddings API.
type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}
