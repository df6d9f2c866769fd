package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScanner/internal/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<products extraction_date="2025-03-14T08:30:00">
  <product group="camiseta-basica">
    <id>101</id>
    <name>Camiseta Básica</name>
    <price>59.90</price>
    <seller>Minha Loja</seller>
    <url>https://market.example/p/101</url>
    <original_url>https://minhaloja.example/camiseta</original_url>
  </product>
  <product group="camiseta-basica">
    <id>102</id>
    <name>Camiseta Basica Algodao</name>
    <price>49.90</price>
    <seller>Rival Modas</seller>
  </product>
  <product group="calca-jeans" id="201" name="Calça Jeans" price="120" seller="MINHA LOJA"/>
  <product group="camiseta-basica">
    <name>Camiseta</name>
    <price>45,00</price>
    <seller>Outra Loja</seller>
  </product>
  <product>
    <name><![CDATA[Boné <b>Aba Reta</b>]]></name>
    <price>not a price</price>
  </product>
</products>`

func newTestParser() *XMLParser {
	return NewXMLParser(domain.AnalysisOptions{
		Stores:           domain.NewStoreSet("Minha Loja"),
		ThresholdPercent: 10,
	}, nil)
}

func TestParseGroupsInFirstSeenOrder(t *testing.T) {
	t.Parallel()

	result, err := newTestParser().Parse(sampleFeed)
	require.NoError(t, err)

	keys := make([]string, 0, len(result.ProductGroups))
	for _, g := range result.ProductGroups {
		keys = append(keys, g.GroupKey)
	}
	if diff := cmp.Diff([]string{"camiseta-basica", "calca-jeans", ""}, keys); diff != "" {
		t.Fatalf("group order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, result.ListingCount())

	require.NotNil(t, result.ExtractionDate)
	assert.Equal(t, "2025-03-14T08:30:00", *result.ExtractionDate)
}

func TestParseFieldsAndDefaults(t *testing.T) {
	t.Parallel()

	result, err := newTestParser().Parse(sampleFeed)
	require.NoError(t, err)

	shirts := result.ProductGroups[0]
	assert.Equal(t, "Camiseta Básica", shirts.DisplayName)
	require.Len(t, shirts.Listings, 3)

	first := shirts.Listings[0]
	assert.Equal(t, domain.Listing{
		ID:          "101",
		Name:        "Camiseta Básica",
		Price:       59.90,
		Seller:      "Minha Loja",
		ListingURL:  "https://market.example/p/101",
		OriginalURL: "https://minhaloja.example/camiseta",
		IsOwnStore:  true,
		GroupKey:    "camiseta-basica",
	}, first)

	second := shirts.Listings[1]
	assert.False(t, second.IsOwnStore)
	assert.Empty(t, second.ListingURL)
	assert.Empty(t, second.OriginalURL)

	// leading number only, like a lenient float parse
	assert.Equal(t, 45.0, shirts.Listings[2].Price)

	jeans := result.ProductGroups[1]
	require.Len(t, jeans.Listings, 1)
	assert.Equal(t, "201", jeans.Listings[0].ID)
	assert.Equal(t, 120.0, jeans.Listings[0].Price)
	assert.True(t, jeans.Listings[0].IsOwnStore)

	orphan := result.ProductGroups[2].Listings[0]
	assert.Equal(t, "Boné Aba Reta", orphan.Name)
	assert.Equal(t, 0.0, orphan.Price)
	assert.Empty(t, orphan.Seller)
	assert.Empty(t, orphan.GroupKey)
}

func TestParseComputesCompetitorRangeAndRecommendation(t *testing.T) {
	t.Parallel()

	result, err := newTestParser().Parse(sampleFeed)
	require.NoError(t, err)

	shirts := result.ProductGroups[0]
	assert.Equal(t, []float64{49.90, 45}, shirts.CompetitorPrices)
	assert.Equal(t, 45.0, shirts.MinPrice)
	assert.Equal(t, 49.90, shirts.MaxPrice)
	require.NotNil(t, shirts.Recommendation)
	assert.Equal(t, domain.AboveMarket, shirts.Recommendation.Direction)

	jeans := result.ProductGroups[1]
	assert.Equal(t, 120.0, jeans.MinPrice)
	assert.Equal(t, 120.0, jeans.MaxPrice)
	assert.Nil(t, jeans.Recommendation)
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	first, err := p.Parse(sampleFeed)
	require.NoError(t, err)
	second, err := p.Parse(sampleFeed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseCountsMatchInput(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<products>")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, `<product group="g%d"><price>%d</price><seller>s%d</seller></product>`, i%7, i, i)
	}
	b.WriteString("</products>")

	result, err := newTestParser().Parse(b.String())
	require.NoError(t, err)
	assert.Len(t, result.ProductGroups, 7)
	assert.Equal(t, 40, result.ListingCount())
	assert.Nil(t, result.ExtractionDate)
}

func TestParseBoundaryThreshold(t *testing.T) {
	t.Parallel()

	feed := func(own string) string {
		return `<products>
		  <product group="g"><price>` + own + `</price><seller>Minha Loja</seller></product>
		  <product group="g"><price>100</price><seller>Rival</seller></product>
		</products>`
	}

	result, err := newTestParser().Parse(feed("110"))
	require.NoError(t, err)
	assert.Nil(t, result.ProductGroups[0].Recommendation)

	result, err = newTestParser().Parse(feed("111"))
	require.NoError(t, err)
	require.NotNil(t, result.ProductGroups[0].Recommendation)
	assert.Equal(t, domain.AboveMarket, result.ProductGroups[0].Recommendation.Direction)
}

func TestParseMalformedInput(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"not xml <<<",
		"",
		"just text",
		"<products><product></products>",
		"<products></products><extra/>",
		"<products></products> trailing",
		"<products><product><name>a &nbsp; b</name></product></products>",
		`junk text <products><product group="g"><price>1</price></product></products>`,
	}

	for _, in := range inputs {
		result, err := newTestParser().Parse(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, errors.Is(err, domain.ErrMalformedDocument), "input %q", in)

		var pe *domain.ParseError
		assert.True(t, errors.As(err, &pe))
		assert.Empty(t, result.ProductGroups)
	}
}

func TestParseAllowsPrologBeforeRoot(t *testing.T) {
	t.Parallel()

	raw := "<?xml version=\"1.0\"?>\n<!-- nightly export -->\n<!DOCTYPE products>\n" +
		`<products><product group="g"><price>1</price></product></products>`

	result, err := newTestParser().Parse(raw)
	require.NoError(t, err)
	require.Len(t, result.ProductGroups, 1)
	assert.Equal(t, 1.0, result.ProductGroups[0].Listings[0].Price)
}

func TestParseNameKeepsEscapedMarkup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		xml  string
		want string
	}{
		{"escaped less-than", `<name>Cabo &lt;HDMI 2m</name>`, "Cabo <HDMI 2m"},
		{"nested element text", `<name>Kit A&amp;B <x>promo</x></name>`, "Kit A&B promo"},
		{"cdata markup", `<name><![CDATA[Boné <b>Aba  Reta</b>]]></name>`, "Boné Aba Reta"},
		{"attribute fallback", `<name/>`, "From Attr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `<products><product group="g" name="From Attr">` + tt.xml + `<price>1</price></product></products>`
			result, err := newTestParser().Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.ProductGroups[0].Listings[0].Name)
			assert.Equal(t, tt.want, result.ProductGroups[0].DisplayName)
		})
	}
}

func TestParseRepeatedChildTakesFirst(t *testing.T) {
	t.Parallel()

	raw := `<products><product group="g"><price>1</price><price>9</price>` +
		`<seller>First</seller><seller>Second</seller></product></products>`

	result, err := newTestParser().Parse(raw)
	require.NoError(t, err)
	l := result.ProductGroups[0].Listings[0]
	assert.Equal(t, 1.0, l.Price)
	assert.Equal(t, "First", l.Seller)
}

func TestParseAcceptsLatin1Feeds(t *testing.T) {
	t.Parallel()

	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<products><product group=\"g\"><name>Cal\xe7a</name><price>10</price></product></products>"

	result, err := newTestParser().Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Calça", result.ProductGroups[0].DisplayName)
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want float64
	}{
		{"59.90", 59.90},
		{" 12 ", 12},
		{"129.90 BRL", 129.90},
		{"45,00", 45},
		{".5", 0.5},
		{"-10", 0},
		{"R$ 10", 0},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePrice(tt.raw), "parsePrice(%q)", tt.raw)
	}
}
