package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medterms/internal/domain"
	"medterms/internal/metrics"
	"medterms/internal/sentence"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const exampleTimeout = 15 * time.Second

// Placeholder is the sentence shown when generation is unavailable
func Placeholder(term domain.Term) string {
	return fmt.Sprintf("Example: %q is used in a sentence.", term.Translations.Primary)
}

// ExampleService produces example sentences, degrading to a placeholder
type ExampleService struct {
	generator sentence.Generator
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewExampleService creates a new example service. generator may be nil;
// perMinute <= 0 disables rate limiting.
func NewExampleService(generator sentence.Generator, perMinute int, logger *zap.Logger) *ExampleService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return &ExampleService{
		generator: generator,
		limiter:   limiter,
		logger:    logger,
	}
}

// Sentence returns an example for term. It never fails.
func (s *ExampleService) Sentence(ctx context.Context, term domain.Term) string {
	if s.generator == nil {
		metrics.ExampleRequests.WithLabelValues(metrics.ResultFallback).Inc()
		return Placeholder(term)
	}
	if !s.limiter.Allow() {
		s.logger.Warn("Example rate limit reached", zap.Int64("term_id", term.ID))
		metrics.ExampleRequests.WithLabelValues(metrics.ResultFallback).Inc()
		return Placeholder(term)
	}

	ctx, cancel := context.WithTimeout(ctx, exampleTimeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, term.Translations.Primary)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		s.logger.Warn("Failed to generate example",
			zap.Int64("term_id", term.ID),
			zap.Error(err))
		metrics.ExampleRequests.WithLabelValues(metrics.ResultError).Inc()
		return Placeholder(term)
	}

	metrics.ExampleRequests.WithLabelValues(metrics.ResultOK).Inc()
	return text
}
