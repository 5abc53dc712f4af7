package search

import (
	"context"
	"time"

	"github.com/lexmachina/lexmachina-agent/internal/domain"
)

// SearchClient returns the ordered suggestions for a query. Failures are
// *domain.Error values classified as auth, request or malformed-response.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]domain.Suggestion, error)
}

// DescriptionFetcher retrieves the description behind one suggestion URL.
type DescriptionFetcher interface {
	FetchDescription(ctx context.Context, sourceURL string) (string, error)
}

// Recorder receives request outcomes. *metrics.Metrics implements it.
type Recorder interface {
	RecordSearchRequest(status string, duration time.Duration)
	RecordDescriptionFetch(status string, duration time.Duration)
}
