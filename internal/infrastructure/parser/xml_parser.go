package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"PriceScanner/internal/analysis"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

const (
	extractionDateAttr = "extraction_date"
	groupAttr          = "group"
)

var priceExpr = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// XMLParser turns a price feed into grouped, annotated products.
type XMLParser struct {
	opts   domain.AnalysisOptions
	logger *slog.Logger
}

var _ ports.FeedParser = (*XMLParser)(nil)

// NewXMLParser binds the own-store set and threshold used for every parse.
func NewXMLParser(opts domain.AnalysisOptions, logger *slog.Logger) *XMLParser {
	return &XMLParser{opts: opts, logger: logger}
}

type feedDocument struct {
	XMLName  xml.Name
	Attrs    []xml.Attr    `xml:",any,attr"`
	Products []feedProduct `xml:"product"`
}

type feedProduct struct {
	Attrs    []xml.Attr  `xml:",any,attr"`
	Children []feedField `xml:",any"`
}

// feedField keeps a child element's raw content so text and CDATA markup can
// be told apart.
type feedField struct {
	XMLName xml.Name
	Inner   string `xml:",innerxml"`
}

// child returns the first child element called name.
func (p feedProduct) child(name string) (feedField, bool) {
	for _, c := range p.Children {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return feedField{}, false
}

// text is the concatenated character data of the element and its descendants.
func (f feedField) text() string {
	dec := xml.NewDecoder(strings.NewReader(f.Inner))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
	return b.String()
}

func (f feedField) hasCDATA() bool {
	return strings.Contains(f.Inner, "<![CDATA[")
}

// Parse decodes raw and groups its listings. Only a document that is not
// well-formed XML fails; absent fields become "" or 0.
func (p *XMLParser) Parse(raw string) (domain.ParseResult, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return domain.ParseResult{}, err
	}

	listings := make([]domain.Listing, 0, len(doc.Products))
	for _, prod := range doc.Products {
		listings = append(listings, p.toListing(prod))
	}

	groups := analysis.GroupListings(listings, p.opts)

	var extractionDate *string
	if v, ok := attrValue(doc.Attrs, extractionDateAttr); ok {
		extractionDate = &v
	}

	p.debug("feed parsed", "root", doc.XMLName.Local, "listings", len(listings), "groups", len(groups))

	return domain.ParseResult{
		ProductGroups:  groups,
		ExtractionDate: extractionDate,
	}, nil
}

func decodeDocument(raw string) (feedDocument, error) {
	var doc feedDocument

	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	root, err := rootElement(dec)
	if err != nil {
		return feedDocument{}, &domain.ParseError{Err: err}
	}
	if err := dec.DecodeElement(&doc, &root); err != nil {
		return feedDocument{}, &domain.ParseError{Err: err}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return feedDocument{}, &domain.ParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) > 0 {
				return feedDocument{}, &domain.ParseError{Err: errors.New("content after root element")}
			}
		case xml.StartElement:
			return feedDocument{}, &domain.ParseError{Err: fmt.Errorf("second root element <%s>", t.Name.Local)}
		}
	}

	return doc, nil
}

// rootElement skips the prolog (declaration, comments, doctype) and returns
// the first start tag. Text before it is an error.
func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, errors.New("no root element")
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) > 0 {
				return xml.StartElement{}, errors.New("content before root element")
			}
		}
	}
}

func (p *XMLParser) toListing(prod feedProduct) domain.Listing {
	seller := field(prod, "seller")
	group, _ := attrValue(prod.Attrs, groupAttr)

	return domain.Listing{
		ID:          field(prod, "id"),
		Name:        productName(prod),
		Price:       parsePrice(field(prod, "price")),
		Seller:      seller,
		ListingURL:  field(prod, "url"),
		OriginalURL: field(prod, "original_url"),
		IsOwnStore:  p.opts.Stores.Contains(seller),
		GroupKey:    group,
	}
}

// field prefers the first child element's text and falls back to a
// same-named attribute.
func field(prod feedProduct, name string) string {
	if c, ok := prod.child(name); ok {
		if v := strings.TrimSpace(c.text()); v != "" {
			return v
		}
	}
	v, _ := attrValue(prod.Attrs, name)
	return strings.TrimSpace(v)
}

// productName strips HTML only when it arrived inside a CDATA section;
// escaped text such as "&lt;" stays literal.
func productName(prod feedProduct) string {
	if c, ok := prod.child("name"); ok && c.hasCDATA() {
		if v := stripMarkup(c.text()); v != "" {
			return v
		}
	}
	return collapseSpace(field(prod, "name"))
}

func attrValue(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// parsePrice reads the leading decimal number; anything else is 0.
func parsePrice(raw string) float64 {
	match := priceExpr.FindString(strings.TrimSpace(raw))
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func stripMarkup(s string) string {
	if strings.Contains(s, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return collapseSpace(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (p *XMLParser) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
