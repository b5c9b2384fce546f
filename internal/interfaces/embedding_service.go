package interfaces

import "context"

// Embedder converts texts into fixed-length vectors.
// Embed must return exactly one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
