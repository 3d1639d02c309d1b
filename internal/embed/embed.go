// Package embed provides text-to-vector embedding for semantic similarity.
//
// The only production implementation is fully local: all-MiniLM-L6-v2 run
// through ONNX Runtime with WordPiece tokenization. Whether an embedder is
// available is decided once at composition time (capability probe on the
// model files); callers that receive no embedder substitute the documented
// neutral semantic score instead of treating absence as an error path.
package embed

import (
	"context"
	"errors"
	"math"
	"os"
)

// ErrUnavailable is returned by the null embedder. Scorers never surface it;
// they degrade to a neutral score.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Null is the no-capability embedder. Every call fails with ErrUnavailable.
type Null struct{}

func (Null) Embed(context.Context, string) ([]float32, error) { return nil, ErrUnavailable }

func (Null) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (Null) Dimensions() int { return 0 }

// Available probes whether the local model files exist. Run once at startup;
// the result decides which Embedder the engine is composed with.
func Available(modelPath, tokenizerPath string) bool {
	if modelPath == "" || tokenizerPath == "" {
		return false
	}
	if _, err := os.Stat(modelPath); err != nil {
		return false
	}
	if _, err := os.Stat(tokenizerPath); err != nil {
		return false
	}
	return true
}

// Cosine computes the cosine similarity between two vectors, in [-1, 1].
// Mismatched or zero-length vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
