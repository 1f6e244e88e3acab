package ebay

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/omnisell/pricewatch/internal/model"
)

// MockProvider serves deterministic listings derived from the query text.
// It backs tests and unconfigured development runs so the rest of the
// pipeline can be exercised without an application ID.
type MockProvider struct {
	active    []model.Item
	sold      []model.Item
	errText   string
	available bool
	calls     int
}

var _ SearchProvider = (*MockProvider)(nil)

func NewMockProvider() *MockProvider {
	return &MockProvider{available: true}
}

func (m *MockProvider) Available() bool { return m.available }

// SetListings pins the listings returned by subsequent searches.
func (m *MockProvider) SetListings(active, sold []model.Item) {
	m.active = active
	m.sold = sold
}

// SetError makes every search fail with the given message.
func (m *MockProvider) SetError(msg string) { m.errText = msg }

func (m *MockProvider) SetAvailable(v bool) { m.available = v }

// Calls reports how many searches have been issued, for cache-hit tests.
func (m *MockProvider) Calls() int { return m.calls }

func (m *MockProvider) SearchActive(ctx context.Context, req model.SearchRequest) *model.SearchResult {
	return m.respond(req, m.active, model.StatusActive)
}

func (m *MockProvider) SearchSold(ctx context.Context, req model.SearchRequest) *model.SearchResult {
	return m.respond(req, m.sold, model.StatusCompleted)
}

func (m *MockProvider) respond(req model.SearchRequest, pinned []model.Item, status model.ListingStatus) *model.SearchResult {
	m.calls++
	if m.errText != "" {
		return &model.SearchResult{Success: false, Error: m.errText}
	}

	items := pinned
	if items == nil {
		items = m.generate(req.Query, status)
	}
	return &model.SearchResult{
		Success:      true,
		Items:        items,
		TotalResults: len(items),
		PageNumber:   1,
		TotalPages:   1,
	}
}

func (m *MockProvider) generate(query string, status model.ListingStatus) []model.Item {
	h := fnv.New32a()
	h.Write([]byte(query))
	base := float64(10 + h.Sum32()%90)

	count := 8
	items := make([]model.Item, count)
	end := time.Now().UTC().Add(-24 * time.Hour)
	for i := range items {
		items[i] = model.Item{
			ID:        fmt.Sprintf("mock-%s-%d", status, i),
			Title:     fmt.Sprintf("%s listing %d", query, i+1),
			Condition: "Used",
			Currency:  "USD",
			Price:     base + float64(i)*base/10,
			Status:    status,
			EndTime:   end.Add(-time.Duration(i) * 12 * time.Hour),
		}
	}
	return items
}
