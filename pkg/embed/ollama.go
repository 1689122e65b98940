package embed

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
)

// Ollama embeds through a local or remote Ollama server. Requests are rate
// limited so bulk ingestion does not starve interactive queries against the
// same server.
type Ollama struct {
	config  types.EmbedderConfig
	llm     *ollama.LLM
	limiter *rate.Limiter
}

func NewOllama(config types.EmbedderConfig) (*Ollama, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dimension == 0 {
		config.Dimension = 768
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10 // requests per second
	}

	llm, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}

	return &Ollama{
		config:  config,
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func (o *Ollama) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, &models.EmbeddingError{Backend: BackendOllama, Err: err}
	}

	vecs, err := o.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, &models.EmbeddingError{Backend: BackendOllama, Err: err}
	}

	if err := checkShape(BackendOllama, vecs, len(texts), o.config.Dimension); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (o *Ollama) Dimension() int {
	return o.config.Dimension
}

func (o *Ollama) ModelInfo() string {
	return "ollama/" + o.config.Model
}
