// Package provider produces text embeddings via an external provider API.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no provider API key is available.
// It is a configuration error: fatal to the request, never retried.
var ErrNotConfigured = errors.New("embedding provider not configured: missing API key")

// ProviderError is an upstream non-success response. The status and body are
// preserved for diagnosis; the client never retries internally.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider returned status %d: %s", e.Status, e.Body)
}

// IsProviderError reports whether err is (or wraps) a provider failure,
// including the not-configured case. Callers use this to decide whether a
// keyword fallback is warranted.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) || errors.Is(err, ErrNotConfigured)
}

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
