package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedAnnotator delays calls so the wrapped annotator sees at most
// the configured rate. Waiting honors context cancellation.
type RateLimitedAnnotator struct {
	next    Annotator
	limiter *rate.Limiter
}

var _ Annotator = (*RateLimitedAnnotator)(nil)

// NewRateLimitedAnnotator wraps next with a token bucket of rps and burst.
func NewRateLimitedAnnotator(next Annotator, rps float64, burst int) *RateLimitedAnnotator {
	return &RateLimitedAnnotator{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), max(burst, 1)),
	}
}

// Annotate waits for a token and then delegates.
func (r *RateLimitedAnnotator) Annotate(ctx context.Context, text string) (*Annotation, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Annotate(ctx, text)
}

// RateLimitedFrameClassifier is the FrameClassifier counterpart of
// RateLimitedAnnotator. One batch consumes one token.
type RateLimitedFrameClassifier struct {
	next    FrameClassifier
	limiter *rate.Limiter
}

var _ FrameClassifier = (*RateLimitedFrameClassifier)(nil)

// NewRateLimitedFrameClassifier wraps next with a token bucket of rps and burst.
func NewRateLimitedFrameClassifier(next FrameClassifier, rps float64, burst int) *RateLimitedFrameClassifier {
	return &RateLimitedFrameClassifier{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), max(burst, 1)),
	}
}

// ClassifyFrames waits for a token and then delegates.
func (r *RateLimitedFrameClassifier) ClassifyFrames(ctx context.Context, texts []string) ([][]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.ClassifyFrames(ctx, texts)
}

// Decorate applies the rate limit and cache described by cfg to a provider's
// services. The cache sits outside the limiter so hits are never delayed.
func Decorate(provider AIProvider, cfg *Config) (Annotator, FrameClassifier) {
	annotator := provider.Annotator()
	classifier := provider.FrameClassifier()

	if cfg.RequestsPerSecond > 0 {
		annotator = NewRateLimitedAnnotator(annotator, cfg.RequestsPerSecond, cfg.Burst)
		classifier = NewRateLimitedFrameClassifier(classifier, cfg.RequestsPerSecond, cfg.Burst)
	}
	if cfg.CacheTTL >= 0 {
		annotator = NewCachingAnnotator(annotator, cfg.CacheTTL)
	}
	return annotator, classifier
}
