package provider

import (
	"strings"

	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// convertResults maps provider wire results to domain listings. Results
// without an ASIN or with a non-positive price carry no signal for
// aggregation and are dropped.
func convertResults(results []searchResult) []domain.Listing {
	listings := make([]domain.Listing, 0, len(results))
	for _, r := range results {
		if r.ASIN == "" || r.Price <= 0 {
			continue
		}
		listings = append(listings, domain.Listing{
			ASIN:        r.ASIN,
			Title:       strings.TrimSpace(r.Title),
			Brand:       strings.TrimSpace(r.Brand),
			Price:       r.Price,
			Currency:    r.Currency,
			Rating:      r.Rating,
			ReviewCount: r.ReviewCount,
			ListingURL:  r.URL,
		})
	}
	return listings
}
