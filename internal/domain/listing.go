package domain

import (
	"strings"
	"time"
)

// DefaultThresholdPercent is the price gap above which a recommendation is emitted.
const DefaultThresholdPercent = 10.0

// Listing is one seller's offer extracted from a price feed.
type Listing struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Seller      string  `json:"seller"`
	ListingURL  string  `json:"listingUrl"`
	OriginalURL string  `json:"originalUrl"`
	IsOwnStore  bool    `json:"isOwnStore"`
	GroupKey    string  `json:"groupKey"`
}

// RecommendationDirection tells on which side of the market the own price sits.
type RecommendationDirection string

const (
	AboveMarket RecommendationDirection = "above_market"
	BelowMarket RecommendationDirection = "below_market"
)

// Recommendation is the pricing advice derived for a group.
type Recommendation struct {
	Direction   RecommendationDirection `json:"direction"`
	DiffPercent float64                 `json:"diffPercent"`
	Message     string                  `json:"message"`
}

// ProductGroup aggregates the listings the feed asserts are the same product.
type ProductGroup struct {
	GroupKey         string          `json:"groupKey"`
	DisplayName      string          `json:"displayName"`
	Listings         []Listing       `json:"listings"`
	CompetitorPrices []float64       `json:"competitorPrices"`
	MinPrice         float64         `json:"minPrice"`
	MaxPrice         float64         `json:"maxPrice"`
	Recommendation   *Recommendation `json:"recommendation,omitempty"`
}

// ParseResult is the fully materialized output of a feed parse.
type ParseResult struct {
	ProductGroups  []ProductGroup `json:"productGroups"`
	ExtractionDate *string        `json:"extractionDate"`
}

// ListingCount sums listings over all groups.
func (r ParseResult) ListingCount() int {
	total := 0
	for _, g := range r.ProductGroups {
		total += len(g.Listings)
	}
	return total
}

// PriceStatus labels where a price sits inside its group's range.
type PriceStatus string

const (
	BestPrice  PriceStatus = "best-price"
	MidPrice   PriceStatus = "mid-price"
	WorstPrice PriceStatus = "worst-price"
)

// StoreSet is an immutable, case-insensitive set of own-store names.
type StoreSet struct {
	names map[string]struct{}
}

// NewStoreSet normalizes names; blanks are ignored.
func NewStoreSet(names ...string) StoreSet {
	set := StoreSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		key := normalizeStore(n)
		if key == "" {
			continue
		}
		set.names[key] = struct{}{}
	}
	return set
}

// Contains reports whether seller is one of the own stores.
func (s StoreSet) Contains(seller string) bool {
	if len(s.names) == 0 {
		return false
	}
	_, ok := s.names[normalizeStore(seller)]
	return ok
}

// Len returns the number of distinct store names.
func (s StoreSet) Len() int {
	return len(s.names)
}

func normalizeStore(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AnalysisOptions carries per-feed settings into the parser.
type AnalysisOptions struct {
	Stores           StoreSet
	ThresholdPercent float64
}

// Threshold falls back to DefaultThresholdPercent when unset.
func (o AnalysisOptions) Threshold() float64 {
	if o.ThresholdPercent <= 0 {
		return DefaultThresholdPercent
	}
	return o.ThresholdPercent
}

// Snapshot is one analyzed feed, persisted for history.
type Snapshot struct {
	RunID     string
	Feed      string
	FetchedAt time.Time
	Result    ParseResult
}
