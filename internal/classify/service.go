package classify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tariffshield/harrier/internal/domain"
)

// Service tries the remote classifier first and falls back to the
// keyword classifier when the remote is down or cannot classify.
// Implements domain.Classifier.
type Service struct {
	remote   domain.Classifier
	fallback domain.Classifier
}

// NewService wires a remote-then-fallback classifier chain. A nil
// remote degrades to the fallback alone.
func NewService(remote, fallback domain.Classifier) *Service {
	return &Service{remote: remote, fallback: fallback}
}

// Classify resolves the product name, preferring the remote answer.
func (s *Service) Classify(ctx context.Context, productName string) (*domain.Classification, error) {
	if s.remote == nil {
		return s.fallback.Classify(ctx, productName)
	}

	cl, err := s.remote.Classify(ctx, productName)
	if err == nil {
		return cl, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if errors.Is(err, domain.ErrUnclassifiable) {
		slog.Debug("remote classifier could not classify, falling back", "product", productName)
	} else {
		slog.Warn("remote classifier failed, falling back", "product", productName, "error", err)
	}
	return s.fallback.Classify(ctx, productName)
}
