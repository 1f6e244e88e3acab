package ebay

import (
	"strings"
	"testing"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want QueryKind
	}{
		{"empty", "", QueryEmpty},
		{"whitespace only", "   ", QueryEmpty},
		{"too short", "a", QueryTooShort},
		{"too long", strings.Repeat("x", 101), QueryTooLong},
		{"twelve digits resolve to item id", "123456789012", QueryItemID},
		{"eight digits resolve to upc", "12345678", QueryUPC},
		{"sku with dash", "ABC-123_x", QuerySKU},
		{"sku at max length", "a1234567890123456789", QuerySKU},
		{"alphanumeric over 20 chars is text", "a12345678901234567890", QueryText},
		{"plain text", "vintage camera lens", QueryText},
		{"trimmed before classification", "  12345678  ", QueryUPC},
		{"eleven digits are sku not upc", "12345678901", QuerySKU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyQuery(tt.raw); got != tt.want {
				t.Errorf("ClassifyQuery(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestQueryKindSearchable(t *testing.T) {
	searchable := []QueryKind{QueryItemID, QueryUPC, QuerySKU, QueryText}
	for _, k := range searchable {
		if !k.Searchable() {
			t.Errorf("%s should be searchable", k)
		}
	}
	blocked := []QueryKind{QueryEmpty, QueryTooShort, QueryTooLong}
	for _, k := range blocked {
		if k.Searchable() {
			t.Errorf("%s should not be searchable", k)
		}
	}
}
