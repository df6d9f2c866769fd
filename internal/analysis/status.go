package analysis

import "PriceScanner/internal/domain"

// ClassifyPrice labels price against a group's range. Comparison is exact, so
// values that differ only by float rounding upstream land in mid-price.
func ClassifyPrice(price, minPrice, maxPrice float64) domain.PriceStatus {
	switch price {
	case minPrice:
		return domain.BestPrice
	case maxPrice:
		return domain.WorstPrice
	default:
		return domain.MidPrice
	}
}
