package embed

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// DefaultStubDimension keeps the stub usable without any configuration.
const DefaultStubDimension = 768

// Stub is a deterministic offline backend: each input string hashes to a
// seed that drives a pseudo-random unit vector. Identical strings always
// produce identical vectors, which the tests rely on. It carries no
// semantic signal beyond exact-text identity.
type Stub struct {
	dim int
}

func NewStub(dimension int) *Stub {
	if dimension == 0 {
		dimension = DefaultStubDimension
	}
	return &Stub{dim: dimension}
}

func (s *Stub) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = s.embedOne(text)
	}
	return vecs, nil
}

func (s *Stub) embedOne(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, s.dim)
	for i := range vec {
		vec[i] = float32(rng.Float64()*2 - 1)
	}
	l2normalize(vec)
	return vec
}

func (s *Stub) Dimension() int {
	return s.dim
}

func (s *Stub) ModelInfo() string {
	return "stub"
}
