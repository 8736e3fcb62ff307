package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/prospect/internal/models"
)

// Fetcher issues single HTTP requests with pacing, identity rotation and
// retry handling. Implementations are single-user; callers must not share
// one instance across concurrent goroutines.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*models.FetchResponse, error)
	GetWithRetry(ctx context.Context, rawURL string) (*models.FetchResponse, error)
	Head(ctx context.Context, rawURL string) (*models.FetchResponse, error)
	Close()
}

// Browser is the opaque JS-rendering capability consumed by the map
// scraper. Identity rotation happens inside the implementation.
type Browser interface {
	Navigate(ctx context.Context, url string, waitReady bool) (*models.FetchResponse, error)
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) bool
	ScrollWithin(ctx context.Context, selector string, pause time.Duration, maxScrolls int) int
	ScrollToBottom(ctx context.Context, pause time.Duration, maxScrolls int) int
	Click(ctx context.Context, selector string) bool
	Evaluate(ctx context.Context, script string, result interface{}) error
	Content(ctx context.Context) (string, error)
	Close() error
}

// SearchParser extracts listing stubs from a search-result page
type SearchParser interface {
	ParseSearch(html, pageURL string) []*models.Listing
}

// DetailParser extracts a full lead from a detail page
type DetailParser interface {
	ParseDetail(html, pageURL string) *models.Lead
}
