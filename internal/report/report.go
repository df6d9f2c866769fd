// Package report renders analyzed product groups for the terminal or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"PriceScanner/internal/analysis"
	"PriceScanner/internal/domain"
)

var (
	successColor = lipgloss.Color("#10b981")
	warningColor = lipgloss.Color("#f59e0b")
	errorColor   = lipgloss.Color("#ef4444")
	mutedColor   = lipgloss.Color("#6b7280")
	primaryColor = lipgloss.Color("#3b82f6")
)

type styles struct {
	Title   lipgloss.Style
	Group   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Best    lipgloss.Style
	Worst   lipgloss.Style
	Above   lipgloss.Style
	Below   lipgloss.Style
	Divider string
}

func newStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true),
		Group: lipgloss.NewStyle().
			Bold(true).
			MarginTop(1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1),
		Cell: lipgloss.NewStyle().
			Padding(0, 1),
		Muted: lipgloss.NewStyle().
			Foreground(mutedColor),
		Best: lipgloss.NewStyle().
			Foreground(successColor).
			Padding(0, 1),
		Worst: lipgloss.NewStyle().
			Foreground(errorColor).
			Padding(0, 1),
		Above: lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true),
		Below: lipgloss.NewStyle().
			Foreground(successColor),
		Divider: "|",
	}
}

// TextRenderer writes a human readable report.
type TextRenderer struct {
	out    io.Writer
	styles styles
}

// NewTextRenderer builds a renderer writing to out.
func NewTextRenderer(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out, styles: newStyles()}
}

// Render prints the summary line followed by one table per group.
func (r *TextRenderer) Render(feed string, groups []domain.ProductGroup) error {
	var sb strings.Builder

	sum := analysis.Summarize(groups)
	sb.WriteString(r.styles.Title.Render("Feed: " + feed))
	sb.WriteString("\n")
	sb.WriteString(r.styles.Muted.Render(fmt.Sprintf(
		"%d groups, %d listings, %d alerts, %d competitor winning, %d without competitors",
		sum.Groups, sum.Listings, sum.Alerts, sum.CompetitorWinning, sum.Monopolies)))
	sb.WriteString("\n")

	if len(groups) == 0 {
		sb.WriteString(r.styles.Muted.Render("No product groups match."))
		sb.WriteString("\n")
	}

	for _, g := range groups {
		r.renderGroup(&sb, g)
	}

	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *TextRenderer) renderGroup(sb *strings.Builder, g domain.ProductGroup) {
	title := fmt.Sprintf("%s (%s)  %s - %s", g.DisplayName, g.GroupKey,
		formatPrice(g.MinPrice), formatPrice(g.MaxPrice))
	sb.WriteString(r.styles.Group.Render(title))
	sb.WriteString("\n")

	headers := []string{"Seller", "Price", "Status", "Own"}
	statusColumn := 2
	rows := make([][]string, 0, len(g.Listings))
	for _, l := range g.Listings {
		own := ""
		if l.IsOwnStore {
			own = "yes"
		}
		status := analysis.ClassifyPrice(l.Price, g.MinPrice, g.MaxPrice)
		rows = append(rows, []string{l.Seller, formatPrice(l.Price), string(status), own})
	}
	r.renderTable(sb, headers, rows, statusColumn)

	if rec := g.Recommendation; rec != nil {
		style := r.styles.Below
		if rec.Direction == domain.AboveMarket {
			style = r.styles.Above
		}
		sb.WriteString(style.Render(rec.Message))
		sb.WriteString("\n")
	}
}

// renderTable colors only the cells of statusColumn by price status.
func (r *TextRenderer) renderTable(sb *strings.Builder, headers []string, rows [][]string, statusColumn int) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	// Width includes the padding.
	for i := range widths {
		widths[i] += 2
	}

	sep := r.styles.Muted.Render(r.styles.Divider)
	for i, h := range headers {
		sb.WriteString(r.styles.Header.Width(widths[i]).Render(h))
		if i < len(headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			style := r.cellStyle(i, cell, statusColumn)
			sb.WriteString(style.Width(widths[i]).Render(cell))
			if i < len(row)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}
}

func (r *TextRenderer) cellStyle(col int, cell string, statusColumn int) lipgloss.Style {
	if col != statusColumn {
		return r.styles.Cell
	}
	switch domain.PriceStatus(cell) {
	case domain.BestPrice:
		return r.styles.Best
	case domain.WorstPrice:
		return r.styles.Worst
	default:
		return r.styles.Cell
	}
}

// Document is the JSON shape of a feed report.
type Document struct {
	Feed           string                `json:"feed"`
	RunID          string                `json:"runId,omitempty"`
	ExtractionDate *string               `json:"extractionDate"`
	Summary        analysis.Summary      `json:"summary"`
	ProductGroups  []domain.ProductGroup `json:"productGroups"`
}

// NewDocument assembles the JSON document for groups.
func NewDocument(feed, runID string, extractionDate *string, groups []domain.ProductGroup) Document {
	if groups == nil {
		groups = []domain.ProductGroup{}
	}
	return Document{
		Feed:           feed,
		RunID:          runID,
		ExtractionDate: extractionDate,
		Summary:        analysis.Summarize(groups),
		ProductGroups:  groups,
	}
}

// WriteJSON encodes docs as an indented JSON array.
func WriteJSON(out io.Writer, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
