// Package embeddings turns text into unit-normalized vectors for the
// retrieval index.
package embeddings

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

type Embedder interface {
	// Embed generates embeddings for one or more texts, one vector per text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// ChromemFunc adapts an Embedder to the single-text function chromem-go
// expects.
func ChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, nil
		}
		return vectors[0], nil
	}
}
