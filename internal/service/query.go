package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
	"github.com/lexmachina/lexmachina-agent/internal/metrics"
	"github.com/lexmachina/lexmachina-agent/internal/search"
)

type Enricher interface {
	Enrich(ctx context.Context, suggestions []domain.Suggestion) []domain.Suggestion
}

// QueryService runs one agent turn: search, then enrich every suggestion.
// It never returns a Go error; failures are folded into the Result.
type QueryService interface {
	Process(ctx context.Context, req *domain.QueryRequest) *domain.Result
}

type QueryServiceDeps struct {
	Search   search.SearchClient
	Enricher Enricher
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

type queryService struct {
	search   search.SearchClient
	enricher Enricher
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewQueryService(deps QueryServiceDeps) QueryService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &queryService{
		search:   deps.Search,
		enricher: deps.Enricher,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

func (s *queryService) Process(ctx context.Context, req *domain.QueryRequest) *domain.Result {
	startTime := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	if err := req.Validate(); err != nil {
		s.record("validation_error", startTime)
		return domain.ErrorResult(err)
	}
	req.Sanitize()

	s.logger.Info("processing query",
		zap.String("task_id", req.TaskID),
		zap.String("context_id", req.ContextID),
		zap.Int("query_length", len(req.Text)),
	)

	suggestions, err := s.search.Search(ctx, req.Text)
	if err != nil {
		// enrichment is skipped entirely when the search fails
		s.logger.Warn("search failed",
			zap.String("task_id", req.TaskID),
			zap.String("kind", domain.KindCode(err)),
			zap.String("reason", domain.ReasonOf(err)),
		)
		s.record("search_error", startTime)
		return domain.ErrorResult(err)
	}

	enriched := s.enricher.Enrich(ctx, suggestions)

	failed := 0
	for _, sg := range enriched {
		if sg.EnrichmentError != nil {
			failed++
		}
	}

	s.logger.Info("query processed",
		zap.String("task_id", req.TaskID),
		zap.Int("suggestions", len(enriched)),
		zap.Int("enrichment_failures", failed),
		zap.Duration("duration", time.Since(startTime)),
	)
	s.record("success", startTime)

	return domain.SuccessResult(enriched)
}

func (s *queryService) record(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest("query", status, time.Since(start))
	}
}
