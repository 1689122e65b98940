package embed

import (
	"fmt"
	"math"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
)

// Backend names accepted by New.
const (
	BackendStub   = "stub"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// New builds the embedding backend named by config.Backend. Backends are
// selected once at startup; callers only ever see the types.Embedder
// capability.
func New(config types.EmbedderConfig) (types.Embedder, error) {
	switch config.Backend {
	case BackendStub, "":
		return NewStub(config.Dimension), nil
	case BackendOllama:
		return NewOllama(config)
	case BackendOpenAI:
		return NewOpenAI(config)
	default:
		return nil, fmt.Errorf("unknown embedding backend: %q", config.Backend)
	}
}

// checkShape validates a backend response against the request: one vector
// per input text, every vector of the configured dimension.
func checkShape(backend string, vecs [][]float32, want, dim int) error {
	if len(vecs) != want {
		return &models.EmbeddingError{
			Backend: backend,
			Err:     fmt.Errorf("got %d vectors for %d texts", len(vecs), want),
		}
	}
	for i, v := range vecs {
		if len(v) != dim {
			return &models.EmbeddingError{
				Backend: backend,
				Err:     fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim),
			}
		}
	}
	return nil
}

// l2normalize scales v to unit length in place. Zero vectors are left as-is.
func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
