package ebay

import (
	"strconv"
	"strings"
	"time"

	"github.com/omnisell/pricewatch/internal/model"
)

// The Finding API returns every field wrapped in a single-element array,
// even scalars. The structs below mirror that wire shape exactly; the
// first* accessors collapse it with explicit zero-value defaulting so a
// missing field can never fault the mapping.

type findingEnvelope struct {
	FindItemsAdvancedResponse  []operationResponse `json:"findItemsAdvancedResponse"`
	FindCompletedItemsResponse []operationResponse `json:"findCompletedItemsResponse"`
	ErrorMessage               []errorMessage      `json:"errorMessage"`
}

type operationResponse struct {
	Ack              []string `json:"ack"`
	ErrorMessage     []errorMessage
	SearchResult     []searchResult     `json:"searchResult"`
	PaginationOutput []paginationOutput `json:"paginationOutput"`
}

type errorMessage struct {
	Error []struct {
		Message []string `json:"message"`
	} `json:"error"`
}

type searchResult struct {
	Count []string      `json:"@count"`
	Item  []findingItem `json:"item"`
}

type paginationOutput struct {
	PageNumber     []string `json:"pageNumber"`
	EntriesPerPage []string `json:"entriesPerPage"`
	TotalPages     []string `json:"totalPages"`
	TotalEntries   []string `json:"totalEntries"`
}

type findingItem struct {
	ItemID          []string `json:"itemId"`
	Title           []string `json:"title"`
	PrimaryCategory []struct {
		CategoryName []string `json:"categoryName"`
	} `json:"primaryCategory"`
	Condition []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
	SellingStatus []struct {
		CurrentPrice []moneyValue `json:"currentPrice"`
		SellingState []string     `json:"sellingState"`
		BidCount     []string     `json:"bidCount"`
	} `json:"sellingStatus"`
	ShippingInfo []struct {
		ShippingServiceCost []moneyValue `json:"shippingServiceCost"`
	} `json:"shippingInfo"`
	ListingInfo []struct {
		StartTime  []string `json:"startTime"`
		EndTime    []string `json:"endTime"`
		WatchCount []string `json:"watchCount"`
	} `json:"listingInfo"`
}

type moneyValue struct {
	Value      []string `json:"__value__"`
	CurrencyID []string `json:"@currencyId"`
}

func firstString(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func firstInt(ss []string) int {
	n, err := strconv.Atoi(firstString(ss))
	if err != nil {
		return 0
	}
	return n
}

func firstFloat(ss []string) float64 {
	f, err := strconv.ParseFloat(firstString(ss), 64)
	if err != nil {
		return 0
	}
	return f
}

func firstTime(ss []string) time.Time {
	t, err := time.Parse(time.RFC3339, firstString(ss))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (i findingItem) id() string    { return firstString(i.ItemID) }
func (i findingItem) title() string { return firstString(i.Title) }

func (i findingItem) category() string {
	if len(i.PrimaryCategory) == 0 {
		return ""
	}
	return firstString(i.PrimaryCategory[0].CategoryName)
}

func (i findingItem) condition() string {
	if len(i.Condition) == 0 {
		return ""
	}
	return firstString(i.Condition[0].ConditionDisplayName)
}

func (i findingItem) price() (float64, string) {
	if len(i.SellingStatus) == 0 || len(i.SellingStatus[0].CurrentPrice) == 0 {
		return 0, ""
	}
	cp := i.SellingStatus[0].CurrentPrice[0]
	return firstFloat(cp.Value), firstString(cp.CurrencyID)
}

func (i findingItem) bidCount() int {
	if len(i.SellingStatus) == 0 {
		return 0
	}
	return firstInt(i.SellingStatus[0].BidCount)
}

func (i findingItem) sellingState() string {
	if len(i.SellingStatus) == 0 {
		return ""
	}
	return firstString(i.SellingStatus[0].SellingState)
}

func (i findingItem) shippingCost() float64 {
	if len(i.ShippingInfo) == 0 || len(i.ShippingInfo[0].ShippingServiceCost) == 0 {
		return 0
	}
	return firstFloat(i.ShippingInfo[0].ShippingServiceCost[0].Value)
}

func (i findingItem) startTime() time.Time {
	if len(i.ListingInfo) == 0 {
		return time.Time{}
	}
	return firstTime(i.ListingInfo[0].StartTime)
}

func (i findingItem) endTime() time.Time {
	if len(i.ListingInfo) == 0 {
		return time.Time{}
	}
	return firstTime(i.ListingInfo[0].EndTime)
}

func (i findingItem) watchCount() int {
	if len(i.ListingInfo) == 0 {
		return 0
	}
	return firstInt(i.ListingInfo[0].WatchCount)
}

// status maps the provider selling state onto the canonical lifecycle,
// falling back to the status implied by which operation produced the item.
func (i findingItem) status(fallback model.ListingStatus) model.ListingStatus {
	switch i.sellingState() {
	case "Active":
		return model.StatusActive
	case "EndedWithSales":
		return model.StatusCompleted
	case "EndedWithoutSales", "Ended", "Canceled":
		return model.StatusEnded
	}
	return fallback
}

func (i findingItem) toItem(fallback model.ListingStatus) model.Item {
	price, currency := i.price()
	return model.Item{
		ID:           i.id(),
		Title:        i.title(),
		Category:     i.category(),
		Condition:    i.condition(),
		Currency:     currency,
		Price:        price,
		Status:       i.status(fallback),
		StartTime:    i.startTime(),
		EndTime:      i.endTime(),
		ShippingCost: i.shippingCost(),
		WatchCount:   i.watchCount(),
		BidCount:     i.bidCount(),
	}
}

// firstError digs the first human-readable message out of an error payload.
func (e errorMessage) firstError() string {
	if len(e.Error) == 0 {
		return ""
	}
	return firstString(e.Error[0].Message)
}

// errorText returns the embedded provider error message, if any, from
// either the envelope-level or operation-level error slot.
func (env findingEnvelope) errorText() string {
	if len(env.ErrorMessage) > 0 {
		if msg := env.ErrorMessage[0].firstError(); msg != "" {
			return msg
		}
	}
	for _, op := range [][]operationResponse{env.FindItemsAdvancedResponse, env.FindCompletedItemsResponse} {
		if len(op) > 0 && len(op[0].ErrorMessage) > 0 {
			if msg := op[0].ErrorMessage[0].firstError(); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// operation picks whichever operation response is present.
func (env findingEnvelope) operation() (operationResponse, bool) {
	if len(env.FindItemsAdvancedResponse) > 0 {
		return env.FindItemsAdvancedResponse[0], true
	}
	if len(env.FindCompletedItemsResponse) > 0 {
		return env.FindCompletedItemsResponse[0], true
	}
	return operationResponse{}, false
}

// mapResponse converts a parsed envelope into the canonical result shape.
// Missing fields default to zero values rather than failing the mapping.
func mapResponse(env findingEnvelope, fallback model.ListingStatus) *model.SearchResult {
	op, ok := env.operation()
	if !ok {
		return &model.SearchResult{Success: true, Items: []model.Item{}}
	}

	if len(op.Ack) > 0 && strings.EqualFold(op.Ack[0], "Failure") {
		msg := "marketplace API reported a failure"
		if len(op.ErrorMessage) > 0 {
			if m := op.ErrorMessage[0].firstError(); m != "" {
				msg = m
			}
		}
		return &model.SearchResult{Success: false, Error: msg}
	}

	result := &model.SearchResult{Success: true, Items: []model.Item{}}

	if len(op.SearchResult) > 0 {
		for _, raw := range op.SearchResult[0].Item {
			result.Items = append(result.Items, raw.toItem(fallback))
		}
	}

	if len(op.PaginationOutput) > 0 {
		p := op.PaginationOutput[0]
		result.PageNumber = firstInt(p.PageNumber)
		result.TotalPages = firstInt(p.TotalPages)
		result.TotalResults = firstInt(p.TotalEntries)
		result.HasMorePages = result.PageNumber < result.TotalPages
	}

	return result
}
