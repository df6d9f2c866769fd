package analysis

import (
	"slices"
	"strings"

	"PriceScanner/internal/domain"
)

// Filter selects which groups a report shows. Enabled criteria combine with AND.
type Filter struct {
	Store             string
	HasAlert          bool
	CompetitorWinning bool
	NoCompetitors     bool
}

// IsZero reports whether the filter lets every group through.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Store) == "" && !f.HasAlert && !f.CompetitorWinning && !f.NoCompetitors
}

// Apply returns the groups matching f. Store narrowing happens first and
// groups left without listings are dropped; category checks then run on the
// narrowed listings. The input is never modified.
func Apply(groups []domain.ProductGroup, f Filter) []domain.ProductGroup {
	store := strings.ToLower(strings.TrimSpace(f.Store))
	result := make([]domain.ProductGroup, 0, len(groups))

	for _, g := range groups {
		if store != "" {
			narrowed := make([]domain.Listing, 0, len(g.Listings))
			for _, l := range g.Listings {
				if strings.Contains(strings.ToLower(l.Seller), store) {
					narrowed = append(narrowed, l)
				}
			}
			if len(narrowed) == 0 {
				continue
			}
			g.Listings = narrowed
		}

		if f.HasAlert && g.Recommendation == nil {
			continue
		}
		if f.CompetitorWinning && !CompetitorWinning(g) {
			continue
		}
		if f.NoCompetitors && !NoCompetitors(g) {
			continue
		}

		result = append(result, g)
	}

	return result
}

// CompetitorWinning reports whether the cheapest listing belongs to a competitor.
// Ties keep feed order.
func CompetitorWinning(g domain.ProductGroup) bool {
	if len(g.Listings) == 0 {
		return false
	}
	sorted := slices.Clone(g.Listings)
	slices.SortStableFunc(sorted, func(a, b domain.Listing) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		default:
			return 0
		}
	})
	return !sorted[0].IsOwnStore
}

// NoCompetitors reports whether every listing in the group is an own-store one.
func NoCompetitors(g domain.ProductGroup) bool {
	for _, l := range g.Listings {
		if !l.IsOwnStore {
			return false
		}
	}
	return true
}

// Summary holds the headline counts of a report.
type Summary struct {
	Groups            int `json:"groups"`
	Listings          int `json:"listings"`
	Alerts            int `json:"alerts"`
	CompetitorWinning int `json:"competitorWinning"`
	Monopolies        int `json:"monopolies"`
}

// Summarize counts groups by category.
func Summarize(groups []domain.ProductGroup) Summary {
	var s Summary
	for _, g := range groups {
		s.Groups++
		s.Listings += len(g.Listings)
		if g.Recommendation != nil {
			s.Alerts++
		}
		if CompetitorWinning(g) {
			s.CompetitorWinning++
		}
		if NoCompetitors(g) {
			s.Monopolies++
		}
	}
	return s
}
