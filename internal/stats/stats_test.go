package stats

import (
	"math"
	"testing"
	"time"

	"github.com/omnisell/pricewatch/internal/model"
)

func itemsWithPrices(prices ...float64) []model.Item {
	items := make([]model.Item, len(prices))
	for i, p := range prices {
		items[i] = model.Item{
			ID:    string(rune('a' + i)),
			Title: "item",
			Price: p,
		}
	}
	return items
}

func TestMetrics_Empty(t *testing.T) {
	m := Metrics(nil)
	if m != (model.ListingMetrics{}) {
		t.Errorf("expected all-zero metrics for empty input, got %+v", m)
	}
	m = Metrics([]model.Item{})
	if m != (model.ListingMetrics{}) {
		t.Errorf("expected all-zero metrics for empty slice, got %+v", m)
	}
}

func TestMetrics_KnownValues(t *testing.T) {
	m := Metrics(itemsWithPrices(30, 10, 40, 20))

	if m.Count != 4 {
		t.Errorf("Count = %d, want 4", m.Count)
	}
	if m.Average != 25 {
		t.Errorf("Average = %v, want 25", m.Average)
	}
	if m.Median != 25 {
		t.Errorf("Median = %v, want 25", m.Median)
	}
	if m.Min != 10 || m.Max != 40 {
		t.Errorf("Min/Max = %v/%v, want 10/40", m.Min, m.Max)
	}
	// Population stddev: sqrt(125) = 11.1803... rounded to 11.18
	if m.StdDev != 11.18 {
		t.Errorf("StdDev = %v, want 11.18", m.StdDev)
	}
	if m.RangeLow != 13.82 {
		t.Errorf("RangeLow = %v, want 13.82", m.RangeLow)
	}
	if m.RangeHigh != 36.18 {
		t.Errorf("RangeHigh = %v, want 36.18", m.RangeHigh)
	}
}

func TestMetrics_MedianOddCount(t *testing.T) {
	m := Metrics(itemsWithPrices(9, 1, 5))
	if m.Median != 5 {
		t.Errorf("Median = %v, want 5", m.Median)
	}
}

func TestMetrics_RoundTrip(t *testing.T) {
	prices := []float64{12.34, 99.99, 5.67, 42.00, 18.25, 63.10}
	m := Metrics(itemsWithPrices(prices...))

	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	wantAvg := math.Round(sum/float64(len(prices))*100) / 100
	if m.Average != wantAvg {
		t.Errorf("Average = %v, independently derived %v", m.Average, wantAvg)
	}

	// Even count: median is the mean of the two middle values.
	wantMedian := math.Round((18.25+42.00)/2*100) / 100
	if m.Median != wantMedian {
		t.Errorf("Median = %v, independently derived %v", m.Median, wantMedian)
	}
}

func TestDistribution_Empty(t *testing.T) {
	buckets := Distribution(nil)
	if len(buckets) != 0 {
		t.Errorf("expected no buckets for empty input, got %d", len(buckets))
	}
}

func TestDistribution_Coverage(t *testing.T) {
	cases := [][]float64{
		{10, 20, 30, 40},
		{5, 5, 5},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		{99.99},
		{1, 1, 1, 2, 2, 3, 100, 250, 250.01},
	}

	for _, prices := range cases {
		buckets := Distribution(itemsWithPrices(prices...))

		if len(buckets) < 5 || len(buckets) > 10 {
			t.Errorf("prices %v: bucket count %d outside [5,10]", prices, len(buckets))
		}

		total := 0
		for _, b := range buckets {
			total += b.Count
		}
		if total != len(prices) {
			t.Errorf("prices %v: bucket counts sum to %d, want %d", prices, total, len(prices))
		}

		for i := 0; i < len(buckets)-1; i++ {
			if buckets[i].Max != buckets[i+1].Min {
				t.Errorf("prices %v: buckets %d and %d not contiguous (%v != %v)",
					prices, i, i+1, buckets[i].Max, buckets[i+1].Min)
			}
		}
	}
}

func TestDistribution_BucketCountScaling(t *testing.T) {
	// 4 items: ceil(sqrt(4)) = 2, clamped up to 5.
	if got := len(Distribution(itemsWithPrices(1, 2, 3, 4))); got != 5 {
		t.Errorf("4 items: bucket count = %d, want 5", got)
	}
	// 49 items: ceil(sqrt(49)) = 7.
	prices := make([]float64, 49)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	if got := len(Distribution(itemsWithPrices(prices...))); got != 7 {
		t.Errorf("49 items: bucket count = %d, want 7", got)
	}
	// 200 items: ceil(sqrt(200)) = 15, clamped down to 10.
	prices = make([]float64, 200)
	for i := range prices {
		prices[i] = float64(i)
	}
	if got := len(Distribution(itemsWithPrices(prices...))); got != 10 {
		t.Errorf("200 items: bucket count = %d, want 10", got)
	}
}

func TestDistribution_FinalBucketIncludesMax(t *testing.T) {
	buckets := Distribution(itemsWithPrices(10, 20, 30, 40))
	last := buckets[len(buckets)-1]
	if last.Count != 1 {
		t.Errorf("final bucket count = %d, want 1 (the max-priced item)", last.Count)
	}
	if last.Max != 40 {
		t.Errorf("final bucket max = %v, want 40", last.Max)
	}
}

func TestDistribution_Percentages(t *testing.T) {
	buckets := Distribution(itemsWithPrices(10, 20, 30, 40))
	wantCounts := []int{1, 1, 0, 1, 1}
	wantPcts := []int{25, 25, 0, 25, 25}
	for i, b := range buckets {
		if b.Count != wantCounts[i] {
			t.Errorf("bucket %d count = %d, want %d", i, b.Count, wantCounts[i])
		}
		if b.Percentage != wantPcts[i] {
			t.Errorf("bucket %d percentage = %d, want %d", i, b.Percentage, wantPcts[i])
		}
	}
}

func TestTrends(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	sold := []model.Item{
		{ID: "1", Price: 30, EndTime: day2},
		{ID: "2", Price: 10, EndTime: day1},
		{ID: "3", Price: 20, EndTime: day1.Add(2 * time.Hour)},
		{ID: "4", Price: 50}, // no end time, skipped
	}

	points := Trends(sold)
	if len(points) != 2 {
		t.Fatalf("got %d trend points, want 2", len(points))
	}
	if points[0].Date != "2026-03-10" || points[1].Date != "2026-03-12" {
		t.Errorf("dates not ascending: %s, %s", points[0].Date, points[1].Date)
	}
	if points[0].Average != 15 || points[0].Median != 15 || points[0].Count != 2 {
		t.Errorf("day 1 point = %+v, want avg/median 15, count 2", points[0])
	}
	if points[1].Average != 30 || points[1].Count != 1 {
		t.Errorf("day 2 point = %+v, want avg 30, count 1", points[1])
	}
}

func TestTrends_Empty(t *testing.T) {
	if got := Trends(nil); len(got) != 0 {
		t.Errorf("expected no trend points, got %d", len(got))
	}
}

func TestOutliers_BelowMinimumPopulation(t *testing.T) {
	if got := Outliers(itemsWithPrices(1, 1000)); len(got) != 0 {
		t.Errorf("expected no outliers for N<3, got %d", len(got))
	}
}

func TestOutliers_SingleHighOutlier(t *testing.T) {
	// mean = 41.67, population sigma = 70.81; 200 deviates by 158.33,
	// which is 2.24 sigma. The 10s deviate by only 0.45 sigma.
	items := itemsWithPrices(10, 10, 10, 10, 10, 200)
	outliers := Outliers(items)

	if len(outliers) != 1 {
		t.Fatalf("got %d outliers, want 1", len(outliers))
	}
	o := outliers[0]
	if o.Price != 200 {
		t.Errorf("outlier price = %v, want 200", o.Price)
	}
	if o.Direction != model.OutlierHigh {
		t.Errorf("direction = %s, want high", o.Direction)
	}
	if o.Deviation != 2.24 {
		t.Errorf("deviation = %v, want 2.24", o.Deviation)
	}
}

func TestOutliers_UniformPrices(t *testing.T) {
	if got := Outliers(itemsWithPrices(25, 25, 25, 25)); len(got) != 0 {
		t.Errorf("expected no outliers for uniform prices, got %d", len(got))
	}
}

func TestRecommendations(t *testing.T) {
	active := model.ListingMetrics{Count: 8, Average: 40, Median: 50}
	sold := model.ListingMetrics{Count: 5, Average: 30, Median: 20}

	recs := Recommendations(active, sold)
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}

	byType := map[model.RecommendationType]model.PriceRecommendation{}
	for _, r := range recs {
		byType[r.Type] = r
	}

	if r := byType[model.RecommendCompetitive]; r.Price != 40 || r.Confidence != 0.8 {
		t.Errorf("competitive = %+v, want price 40 confidence 0.8", r)
	}
	if r := byType[model.RecommendPremium]; r.Price != 44 || r.Confidence != 0.6 {
		t.Errorf("premium = %+v, want price 44 confidence 0.6", r)
	}
	if r := byType[model.RecommendBudget]; r.Price != 18 || r.Confidence != 0.7 {
		t.Errorf("budget = %+v, want price 18 confidence 0.7", r)
	}

	for _, r := range recs {
		if r.Rationale == "" {
			t.Errorf("%s recommendation has empty rationale", r.Type)
		}
	}
}

func TestRecommendations_RequireBothPopulations(t *testing.T) {
	full := model.ListingMetrics{Count: 3, Average: 10, Median: 10}
	if got := Recommendations(full, model.ListingMetrics{}); len(got) != 0 {
		t.Errorf("expected no recommendations without sold data, got %d", len(got))
	}
	if got := Recommendations(model.ListingMetrics{}, full); len(got) != 0 {
		t.Errorf("expected no recommendations without active data, got %d", len(got))
	}
}

func TestAnalyze(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	endTime := time.Date(2026, 3, 28, 10, 0, 0, 0, time.UTC)

	active := itemsWithPrices(20, 25, 30)
	sold := []model.Item{
		{ID: "s1", Price: 22, EndTime: endTime},
		{ID: "s2", Price: 28, EndTime: endTime},
	}

	analysis := Analyze("vintage camera", active, sold, now)

	if analysis.Query != "vintage camera" {
		t.Errorf("Query = %q", analysis.Query)
	}
	if !analysis.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", analysis.CreatedAt, now)
	}
	if analysis.Active.Count != 3 || analysis.Sold.Count != 2 {
		t.Errorf("counts = %d/%d, want 3/2", analysis.Active.Count, analysis.Sold.Count)
	}

	// Distribution covers the combined population.
	total := 0
	for _, b := range analysis.Distribution {
		total += b.Count
	}
	if total != 5 {
		t.Errorf("distribution covers %d items, want 5", total)
	}

	if len(analysis.Trends) != 1 || analysis.Trends[0].Date != "2026-03-28" {
		t.Errorf("trends = %+v, want one point on 2026-03-28", analysis.Trends)
	}
	if len(analysis.Recommendations) != 3 {
		t.Errorf("got %d recommendations, want 3", len(analysis.Recommendations))
	}
}
