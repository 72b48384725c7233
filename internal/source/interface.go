package source

import (
	"context"

	"github.com/jdjkelly/snowdoge/internal/domain"
)

// Page is one page of contract records pulled from a data source.
// An empty Records slice means the source is exhausted.
type Page struct {
	Records []domain.Contract
	Total   int  // total records reported by the source, 0 if unknown
	HasMore bool // whether the source reports more pages after this one
}

// Source defines the interface for paginated contract data sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	GetDisplayName() string

	// FetchPage fetches one page of contract records at the given offset.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - offset: zero-based record offset into the dataset.
	//   - limit: maximum number of records to fetch.
	// Returns:
	//   - *Page: page of records; empty when the dataset is exhausted.
	//   - err: non-nil only when the source is unreachable after retries.
	FetchPage(ctx context.Context, offset, limit int) (*Page, error)
}
