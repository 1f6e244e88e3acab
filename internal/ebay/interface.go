package ebay

import (
	"context"

	"github.com/omnisell/pricewatch/internal/model"
)

// SearchProvider is implemented by anything that can return active and sold
// marketplace listings for a search request. Failures are reported inside
// the SearchResult, never as panics; implementations must not propagate
// transport errors past this boundary.
type SearchProvider interface {
	Available() bool
	SearchActive(ctx context.Context, req model.SearchRequest) *model.SearchResult
	SearchSold(ctx context.Context, req model.SearchRequest) *model.SearchResult
}

// Ensure Client implements SearchProvider
var _ SearchProvider = (*Client)(nil)
