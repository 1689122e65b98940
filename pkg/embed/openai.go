package embed

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
)

// OpenAI embeds through the OpenAI embeddings API.
type OpenAI struct {
	config types.EmbedderConfig
	client *openai.Client
}

func NewOpenAI(config types.EmbedderConfig) (*OpenAI, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}
	if config.Dimension == 0 {
		config.Dimension = 1536 // text-embedding-3-small
	}

	return &OpenAI{
		config: config,
		client: openai.NewClient(key),
	}, nil
}

func (o *OpenAI) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.config.Model),
		Input: texts,
	})
	if err != nil {
		return nil, &models.EmbeddingError{Backend: BackendOpenAI, Err: err}
	}

	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		copy(vec, d.Embedding)
		l2normalize(vec)
		vecs[i] = vec
	}

	if err := checkShape(BackendOpenAI, vecs, len(texts), o.config.Dimension); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (o *OpenAI) Dimension() int {
	return o.config.Dimension
}

func (o *OpenAI) ModelInfo() string {
	return "openai/" + o.config.Model
}
