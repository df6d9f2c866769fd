package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScanner/internal/domain"
)

func sampleGroups() []domain.ProductGroup {
	return GroupListings([]domain.Listing{
		// competitor undercuts us
		listing("shirt", "Minha Loja", 100, true),
		listing("shirt", "Rival Shop", 80, false),
		// we are cheapest, no alert
		listing("pants", "Minha Loja", 95, true),
		listing("pants", "Other Store", 100, false),
		// monopoly
		listing("hat", "Minha Loja", 40, true),
		// competitors only
		listing("socks", "Rival Shop", 10, false),
		listing("socks", "Other Store", 12, false),
	}, domain.AnalysisOptions{Stores: domain.NewStoreSet("Minha Loja")})
}

func keysOf(groups []domain.ProductGroup) []string {
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.GroupKey)
	}
	return keys
}

func TestApplyZeroFilterKeepsEverything(t *testing.T) {
	t.Parallel()

	groups := sampleGroups()
	assert.True(t, Filter{}.IsZero())
	assert.Equal(t, []string{"shirt", "pants", "hat", "socks"}, keysOf(Apply(groups, Filter{})))
}

func TestApplyCategoryFilters(t *testing.T) {
	t.Parallel()

	groups := sampleGroups()

	assert.Equal(t, []string{"shirt"}, keysOf(Apply(groups, Filter{HasAlert: true})))
	assert.Equal(t, []string{"shirt", "socks"}, keysOf(Apply(groups, Filter{CompetitorWinning: true})))
	assert.Equal(t, []string{"hat"}, keysOf(Apply(groups, Filter{NoCompetitors: true})))
	assert.Empty(t, Apply(groups, Filter{HasAlert: true, NoCompetitors: true}))
}

func TestApplyStoreFilterNarrowsAndDrops(t *testing.T) {
	t.Parallel()

	groups := sampleGroups()
	got := Apply(groups, Filter{Store: "rival"})

	assert.Equal(t, []string{"shirt", "socks"}, keysOf(got))
	require.Len(t, got[0].Listings, 1)
	assert.Equal(t, "Rival Shop", got[0].Listings[0].Seller)

	// input untouched
	assert.Len(t, groups[0].Listings, 2)
}

func TestStoreFilterExcludingCompetitorRemovesWinningGroup(t *testing.T) {
	t.Parallel()

	groups := sampleGroups()
	got := Apply(groups, Filter{Store: "minha", CompetitorWinning: true})
	assert.Empty(t, got)
}

func TestCompetitorWinningTieKeepsFeedOrder(t *testing.T) {
	t.Parallel()

	ownFirst := GroupListings([]domain.Listing{
		listing("g", "mine", 50, true),
		listing("g", "rival", 50, false),
	}, domain.AnalysisOptions{})[0]
	assert.False(t, CompetitorWinning(ownFirst))

	rivalFirst := GroupListings([]domain.Listing{
		listing("g", "rival", 50, false),
		listing("g", "mine", 50, true),
	}, domain.AnalysisOptions{})[0]
	assert.True(t, CompetitorWinning(rivalFirst))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(sampleGroups())
	assert.Equal(t, Summary{Groups: 4, Listings: 7, Alerts: 1, CompetitorWinning: 2, Monopolies: 1}, s)
}
