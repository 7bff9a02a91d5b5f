package aggregate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sellerscope/sellerscope/pkg/aggregate"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func listing(asin, brand string, price, rating float64, reviews int) domain.Listing {
	return domain.Listing{
		ASIN:        asin,
		Title:       "Listing " + asin,
		Brand:       brand,
		Price:       price,
		Currency:    "USD",
		Rating:      rating,
		ReviewCount: reviews,
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	listings := []domain.Listing{
		listing("A1", "OXO", 10.00, 4.5, 100),
		listing("A2", "OXO", 20.00, 4.0, 50),
		listing("A3", "Zulay", 30.00, 0, 25),
		listing("A4", "Lodge", 40.00, 5.0, 25),
	}

	snap := aggregate.Compute("garlic press", "us", listings, testNow)

	assert.Equal(t, "garlic press", snap.Keyword)
	assert.Equal(t, "us", snap.Marketplace)
	assert.Equal(t, 4, snap.ListingCount)
	assert.True(t, snap.HasData())

	assert.InDelta(t, 25.00, snap.AvgPrice, 0.001)
	assert.InDelta(t, 25.00, snap.MedianPrice, 0.001)
	assert.InDelta(t, 10.00, snap.MinPrice, 0.001)
	assert.InDelta(t, 40.00, snap.MaxPrice, 0.001)

	// Unrated listings are excluded from the rating average.
	assert.InDelta(t, 4.5, snap.AvgRating, 0.001)
	assert.Equal(t, 200, snap.TotalReviews)

	assert.Equal(t, "OXO", snap.TopBrand)
	assert.InDelta(t, 0.5, snap.TopBrandShare, 0.001)

	assert.Equal(t, testNow, snap.LastUpdated)
}

func TestCompute_OddMedian(t *testing.T) {
	t.Parallel()

	listings := []domain.Listing{
		listing("A1", "", 10.00, 4.0, 1),
		listing("A2", "", 99.00, 4.0, 1),
		listing("A3", "", 15.00, 4.0, 1),
	}

	snap := aggregate.Compute("k", "us", listings, testNow)
	assert.InDelta(t, 15.00, snap.MedianPrice, 0.001)
}

func TestCompute_BelowMinViableIsEmpty(t *testing.T) {
	t.Parallel()

	listings := []domain.Listing{
		listing("A1", "OXO", 10.00, 4.5, 100),
		listing("A2", "OXO", 20.00, 4.0, 50),
	}

	snap := aggregate.Compute("garlic press", "us", listings, testNow)

	assert.False(t, snap.HasData())
	assert.Zero(t, snap.ListingCount)
	assert.Zero(t, snap.AvgPrice)
	assert.Empty(t, snap.TopBrand)
	// The timestamp still advances so staleness accounting restarts.
	assert.Equal(t, testNow, snap.LastUpdated)
}

func TestCompute_NoListings(t *testing.T) {
	t.Parallel()

	snap := aggregate.Compute("garlic press", "us", nil, testNow)
	assert.False(t, snap.HasData())
	assert.Equal(t, testNow, snap.LastUpdated)
}

func TestCompute_BrandTieBreaksLexicographically(t *testing.T) {
	t.Parallel()

	listings := []domain.Listing{
		listing("A1", "Zulay", 10.00, 4.0, 1),
		listing("A2", "Zulay", 11.00, 4.0, 1),
		listing("A3", "Lodge", 12.00, 4.0, 1),
		listing("A4", "Lodge", 13.00, 4.0, 1),
	}

	snap := aggregate.Compute("k", "us", listings, testNow)
	assert.Equal(t, "Lodge", snap.TopBrand)
	assert.InDelta(t, 0.5, snap.TopBrandShare, 0.001)
}

func TestCompute_NoBrands(t *testing.T) {
	t.Parallel()

	listings := []domain.Listing{
		listing("A1", "", 10.00, 4.0, 1),
		listing("A2", "", 11.00, 4.0, 1),
		listing("A3", "", 12.00, 4.0, 1),
	}

	snap := aggregate.Compute("k", "us", listings, testNow)
	assert.Empty(t, snap.TopBrand)
	assert.Zero(t, snap.TopBrandShare)
}
