// Package analysis groups feed listings into products and derives price signals.
package analysis

import (
	"fmt"
	"math"

	"PriceScanner/internal/domain"
)

// GroupListings buckets listings by group key, preserving first-seen key order
// and insertion order inside each bucket.
func GroupListings(listings []domain.Listing, opts domain.AnalysisOptions) []domain.ProductGroup {
	order := make([]string, 0)
	buckets := make(map[string][]domain.Listing)

	for _, l := range listings {
		if _, ok := buckets[l.GroupKey]; !ok {
			order = append(order, l.GroupKey)
		}
		buckets[l.GroupKey] = append(buckets[l.GroupKey], l)
	}

	groups := make([]domain.ProductGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, buildGroup(key, buckets[key], opts.Threshold()))
	}
	return groups
}

func buildGroup(key string, listings []domain.Listing, threshold float64) domain.ProductGroup {
	var ownPrices, competitorPrices []float64
	allPrices := make([]float64, 0, len(listings))

	for _, l := range listings {
		allPrices = append(allPrices, l.Price)
		if l.IsOwnStore {
			ownPrices = append(ownPrices, l.Price)
		} else {
			competitorPrices = append(competitorPrices, l.Price)
		}
	}

	rangePrices := competitorPrices
	if len(rangePrices) == 0 {
		rangePrices = allPrices
	}
	minPrice, maxPrice := bounds(rangePrices)

	if competitorPrices == nil {
		competitorPrices = []float64{}
	}

	return domain.ProductGroup{
		GroupKey:         key,
		DisplayName:      listings[0].Name,
		Listings:         listings,
		CompetitorPrices: competitorPrices,
		MinPrice:         minPrice,
		MaxPrice:         maxPrice,
		Recommendation:   Recommend(ownPrices, competitorPrices, threshold),
	}
}

// Recommend compares the own average against the competitor average and
// returns nil unless the gap strictly exceeds thresholdPercent.
func Recommend(ownPrices, competitorPrices []float64, thresholdPercent float64) *domain.Recommendation {
	if len(ownPrices) == 0 || len(competitorPrices) == 0 {
		return nil
	}

	avgOwn := mean(ownPrices)
	avgComp := mean(competitorPrices)
	if avgComp == 0 {
		return nil
	}

	diffPct := (avgOwn - avgComp) / avgComp * 100
	if math.Abs(diffPct) <= thresholdPercent {
		return nil
	}

	if diffPct > 0 {
		return &domain.Recommendation{
			Direction:   domain.AboveMarket,
			DiffPercent: diffPct,
			Message:     fmt.Sprintf("Your price is %.1f%% above the market average. Consider reducing it.", diffPct),
		}
	}
	return &domain.Recommendation{
		Direction:   domain.BelowMarket,
		DiffPercent: diffPct,
		Message:     fmt.Sprintf("Your price is %.1f%% below the market average. You are competitive.", math.Abs(diffPct)),
	}
}

func bounds(prices []float64) (float64, float64) {
	if len(prices) == 0 {
		return 0, 0
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
