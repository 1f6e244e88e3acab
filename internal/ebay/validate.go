package ebay

import (
	"regexp"
	"strings"
)

// QueryKind classifies a raw search string. The classification is advisory
// metadata for the caller's routing logic; only the empty/too_short/too_long
// kinds block a search.
type QueryKind string

const (
	QueryEmpty    QueryKind = "empty"
	QueryTooShort QueryKind = "too_short"
	QueryTooLong  QueryKind = "too_long"
	QueryItemID   QueryKind = "item_id"
	QueryUPC      QueryKind = "upc"
	QuerySKU      QueryKind = "sku"
	QueryText     QueryKind = "text"
)

const (
	minQueryLen = 2
	maxQueryLen = 100
)

var (
	itemIDPattern = regexp.MustCompile(`^\d{12}$`)
	upcPattern    = regexp.MustCompile(`^(\d{8}|\d{12})$`)
	skuPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)
)

// ClassifyQuery trims and classifies a raw search string. A 12-digit
// numeric string matches both the item-id and UPC patterns; the item-id
// check runs first and wins, matching the long-standing behavior the
// mobile clients route on.
func ClassifyQuery(raw string) QueryKind {
	q := strings.TrimSpace(raw)
	switch {
	case q == "":
		return QueryEmpty
	case len(q) < minQueryLen:
		return QueryTooShort
	case len(q) > maxQueryLen:
		return QueryTooLong
	case itemIDPattern.MatchString(q):
		return QueryItemID
	case upcPattern.MatchString(q):
		return QueryUPC
	case skuPattern.MatchString(q):
		return QuerySKU
	default:
		return QueryText
	}
}

// Searchable reports whether a classified query may be sent to a provider.
func (k QueryKind) Searchable() bool {
	switch k {
	case QueryEmpty, QueryTooShort, QueryTooLong:
		return false
	}
	return true
}
