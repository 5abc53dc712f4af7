// Package enrich fetches every suggestion's description in parallel and
// merges the outcomes back in input order.
package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
	"github.com/lexmachina/lexmachina-agent/internal/search"
)

type Config struct {
	// MaxConcurrency caps in-flight fetches. <=0 launches all at once.
	MaxConcurrency int
	// RateLimitRPS paces fetch starts across the whole fan-out. <=0 disables.
	RateLimitRPS float64
}

type Recorder interface {
	RecordEnrichment(result, reason string)
	RecordFanOut(size int, duration time.Duration)
}

type Enricher struct {
	fetcher  search.DescriptionFetcher
	cfg      Config
	limiter  *rate.Limiter
	logger   *zap.Logger
	recorder Recorder
}

func New(fetcher search.DescriptionFetcher, cfg Config, logger *zap.Logger) *Enricher {
	e := &Enricher{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
	if cfg.RateLimitRPS > 0 {
		burst := int(cfg.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return e
}

func (e *Enricher) WithRecorder(r Recorder) *Enricher {
	e.recorder = r
	return e
}

// Enrich attempts one description fetch per suggestion and returns a new
// slice of the same length and order. A failed fetch only marks its own
// suggestion with an enrichment error. The input slice is not modified.
func (e *Enricher) Enrich(ctx context.Context, suggestions []domain.Suggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, len(suggestions))
	if len(suggestions) == 0 {
		return out
	}

	start := time.Now()

	var g errgroup.Group
	if e.cfg.MaxConcurrency > 0 {
		g.SetLimit(e.cfg.MaxConcurrency)
	}

	for i, s := range suggestions {
		g.Go(func() error {
			out[i] = e.enrichOne(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	if e.recorder != nil {
		e.recorder.RecordFanOut(len(suggestions), time.Since(start))
	}

	return out
}

func (e *Enricher) enrichOne(ctx context.Context, s domain.Suggestion) domain.Suggestion {
	desc, err := e.fetch(ctx, s.SourceURL)
	if err != nil {
		info := domain.InfoFromError(err)
		// anything not already classified is still an enrichment failure
		info.Kind = domain.KindCode(domain.ErrEnrichment)
		info.Message = domain.ErrEnrichment.Error()

		e.logger.Warn("description fetch failed",
			zap.String("source_url", s.SourceURL),
			zap.String("reason", info.Reason),
			zap.Int("status", info.Status),
		)
		if e.recorder != nil {
			e.recorder.RecordEnrichment("error", info.Reason)
		}
		return s.WithEnrichmentError(info)
	}

	if e.recorder != nil {
		e.recorder.RecordEnrichment("success", "")
	}
	return s.WithDescription(desc)
}

func (e *Enricher) fetch(ctx context.Context, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", domain.NewError(domain.ErrEnrichment, "fetch description", domain.ReasonMissingURL, nil)
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", domain.NewError(domain.ErrEnrichment, "fetch description", domain.ClassifyTransport(err), err)
		}
	}
	return e.fetcher.FetchDescription(ctx, sourceURL)
}
