// Package stats computes price aggregates from marketplace listings. All
// functions are pure and total over non-nil input: empty populations yield
// zero-valued results, never an error or NaN.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/omnisell/pricewatch/internal/model"
)

const (
	minBuckets       = 5
	maxBuckets       = 10
	outlierMinItems  = 3
	outlierThreshold = 2.0 // multiples of sigma
)

// Fixed user-facing rationale strings, one per recommendation type.
const (
	rationaleCompetitive = "Priced between the active median and recent sold average to stay competitive while selling quickly."
	rationalePremium     = "Priced 10% above the active average for items in superior condition or high demand."
	rationaleBudget      = "Priced 10% below the sold median for the fastest possible sale."
)

// Metrics aggregates the prices of items. Monetary outputs are rounded to
// two decimals after the full computation; standard deviation is the
// population form (divide by N).
func Metrics(items []model.Item) model.ListingMetrics {
	n := len(items)
	if n == 0 {
		return model.ListingMetrics{}
	}

	prices := sortedPrices(items)

	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	avg := sum / float64(n)

	variance := 0.0
	for _, p := range prices {
		variance += (p - avg) * (p - avg)
	}
	stdDev := math.Sqrt(variance / float64(n))

	return model.ListingMetrics{
		Count:     n,
		Average:   round2(avg),
		Median:    round2(median(prices)),
		Min:       round2(prices[0]),
		Max:       round2(prices[n-1]),
		StdDev:    round2(stdDev),
		RangeLow:  round2(avg - stdDev),
		RangeHigh: round2(avg + stdDev),
	}
}

// Distribution bins items into clamp(ceil(sqrt(N)), 5, 10) contiguous
// buckets over [min, max]. A price belongs to bucket i when
// min_i <= price < max_i; the final bucket also accepts price == max.
// Percentages are integer percent of N, ties rounding up.
func Distribution(items []model.Item) []model.PriceBucket {
	n := len(items)
	if n == 0 {
		return []model.PriceBucket{}
	}

	prices := sortedPrices(items)
	low, high := prices[0], prices[n-1]

	bucketCount := int(math.Ceil(math.Sqrt(float64(n))))
	if bucketCount < minBuckets {
		bucketCount = minBuckets
	}
	if bucketCount > maxBuckets {
		bucketCount = maxBuckets
	}
	width := (high - low) / float64(bucketCount)

	buckets := make([]model.PriceBucket, bucketCount)
	for i := range buckets {
		upper := low + float64(i+1)*width
		if i == bucketCount-1 {
			upper = high
		}
		buckets[i] = model.PriceBucket{
			Min: low + float64(i)*width,
			Max: upper,
		}
	}

	for _, p := range prices {
		for i := range buckets {
			last := i == len(buckets)-1
			if p >= buckets[i].Min && (p < buckets[i].Max || (last && p <= buckets[i].Max)) {
				buckets[i].Count++
				break
			}
		}
	}

	for i := range buckets {
		buckets[i].Percentage = int(math.Round(100 * float64(buckets[i].Count) / float64(n)))
	}

	return buckets
}

// Trends groups sold items by the UTC calendar date of their end time,
// used as a proxy for the sale date, and returns per-day aggregates in
// ascending date order. Items without an end time are skipped.
func Trends(soldItems []model.Item) []model.PriceTrendPoint {
	byDay := make(map[string][]float64)
	for _, it := range soldItems {
		if it.EndTime.IsZero() {
			continue
		}
		day := it.EndTime.UTC().Format(time.DateOnly)
		byDay[day] = append(byDay[day], it.Price)
	}

	points := make([]model.PriceTrendPoint, 0, len(byDay))
	for day, prices := range byDay {
		sort.Float64s(prices)
		sum := 0.0
		for _, p := range prices {
			sum += p
		}
		points = append(points, model.PriceTrendPoint{
			Date:    day,
			Average: round2(sum / float64(len(prices))),
			Median:  round2(median(prices)),
			Count:   len(prices),
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// Outliers flags items whose price deviates more than two standard
// deviations from the population mean. Populations below three items are
// statistically unstable and yield no outliers.
func Outliers(items []model.Item) []model.PriceOutlier {
	n := len(items)
	if n < outlierMinItems {
		return []model.PriceOutlier{}
	}

	sum := 0.0
	for _, it := range items {
		sum += it.Price
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, it := range items {
		variance += (it.Price - mean) * (it.Price - mean)
	}
	sigma := math.Sqrt(variance / float64(n))
	if sigma == 0 {
		return []model.PriceOutlier{}
	}

	outliers := []model.PriceOutlier{}
	for _, it := range items {
		dev := math.Abs(it.Price - mean)
		if dev <= outlierThreshold*sigma {
			continue
		}
		direction := model.OutlierLow
		if it.Price > mean {
			direction = model.OutlierHigh
		}
		outliers = append(outliers, model.PriceOutlier{
			ItemID:    it.ID,
			Title:     it.Title,
			Price:     it.Price,
			Direction: direction,
			Deviation: round2(dev / sigma),
		})
	}
	return outliers
}

// Recommendations derives suggested listing prices from the active and
// sold aggregates. Both populations must be non-empty; with only one side
// of the market visible there is no signal to price against.
func Recommendations(active, sold model.ListingMetrics) []model.PriceRecommendation {
	if active.Count == 0 || sold.Count == 0 {
		return []model.PriceRecommendation{}
	}

	return []model.PriceRecommendation{
		{
			Type:       model.RecommendCompetitive,
			Price:      round2((active.Median + sold.Average) / 2),
			Rationale:  rationaleCompetitive,
			Confidence: 0.8,
		},
		{
			Type:       model.RecommendPremium,
			Price:      round2(active.Average * 1.10),
			Rationale:  rationalePremium,
			Confidence: 0.6,
		},
		{
			Type:       model.RecommendBudget,
			Price:      round2(sold.Median * 0.90),
			Rationale:  rationaleBudget,
			Confidence: 0.7,
		},
	}
}

// Analyze composes the full analysis for one query from its active and
// sold listings. Distribution and outliers run over the combined
// population; trends over sold listings only.
func Analyze(query string, active, sold []model.Item, now time.Time) model.PriceAnalysis {
	combined := make([]model.Item, 0, len(active)+len(sold))
	combined = append(combined, active...)
	combined = append(combined, sold...)

	activeMetrics := Metrics(active)
	soldMetrics := Metrics(sold)

	return model.PriceAnalysis{
		Query:           query,
		CreatedAt:       now,
		Active:          activeMetrics,
		Sold:            soldMetrics,
		Distribution:    Distribution(combined),
		Trends:          Trends(sold),
		Outliers:        Outliers(combined),
		Recommendations: Recommendations(activeMetrics, soldMetrics),
	}
}

func sortedPrices(items []model.Item) []float64 {
	prices := make([]float64, len(items))
	for i, it := range items {
		prices[i] = it.Price
	}
	sort.Float64s(prices)
	return prices
}

// median expects prices sorted ascending.
func median(prices []float64) float64 {
	n := len(prices)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return prices[n/2]
	}
	return (prices[n/2-1] + prices[n/2]) / 2
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
