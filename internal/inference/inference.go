// Package inference wraps the exported letter classifier behind a small interface.
package inference

import (
	"context"

	"github.com/example/letter-recognizer/internal/normalizer"
)

// Model scores a normalized tensor, returning one score per label.
type Model interface {
	Score(ctx context.Context, input *normalizer.Tensor) ([]float32, error)
	OutputWidth() int
}
