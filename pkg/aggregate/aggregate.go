// Package aggregate computes keyword snapshot metrics from provider
// listings. One aggregation pass produces every snapshot field, so a
// persisted snapshot is always internally consistent.
package aggregate

import (
	"sort"
	"time"

	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// MinViableListings is the smallest sample that yields meaningful
// aggregates. Fewer listings is a valid empty result, not an error.
const MinViableListings = 3

// Compute builds a snapshot for keyword+marketplace from the given
// listings, stamped with now. Below MinViableListings it returns an empty
// snapshot (ListingCount 0) so staleness accounting still restarts.
func Compute(keyword, marketplace string, listings []domain.Listing, now time.Time) domain.Snapshot {
	snap := domain.Snapshot{
		Keyword:     keyword,
		Marketplace: marketplace,
		LastUpdated: now,
	}

	if len(listings) < MinViableListings {
		return snap
	}

	prices := make([]float64, 0, len(listings))
	brandCounts := make(map[string]int)

	var priceSum, ratingSum float64
	var rated int

	for i := range listings {
		l := &listings[i]

		prices = append(prices, l.Price)
		priceSum += l.Price

		if l.Rating > 0 {
			ratingSum += l.Rating
			rated++
		}
		snap.TotalReviews += l.ReviewCount

		if l.Brand != "" {
			brandCounts[l.Brand]++
		}
	}

	sort.Float64s(prices)

	snap.ListingCount = len(listings)
	snap.AvgPrice = priceSum / float64(len(listings))
	snap.MinPrice = prices[0]
	snap.MaxPrice = prices[len(prices)-1]
	snap.MedianPrice = median(prices)

	if rated > 0 {
		snap.AvgRating = ratingSum / float64(rated)
	}

	snap.TopBrand, snap.TopBrandShare = topBrand(brandCounts, len(listings))

	return snap
}

// median assumes prices is sorted and non-empty.
func median(prices []float64) float64 {
	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return (prices[n/2-1] + prices[n/2]) / 2
}

// topBrand returns the most frequent brand and its share of the total
// sample. Ties break lexicographically so the result is deterministic.
func topBrand(counts map[string]int, total int) (string, float64) {
	var best string
	var bestCount int
	for brand, count := range counts {
		if count > bestCount || (count == bestCount && brand < best) {
			best = brand
			bestCount = count
		}
	}
	if bestCount == 0 {
		return "", 0
	}
	return best, float64(bestCount) / float64(total)
}
