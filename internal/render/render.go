// Package render writes tab pages and simple listings to a terminal or a
// pipe. Tables use go-pretty; rows are coloured by display category when
// the output supports colour.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mesh-intelligence/ordertracker/internal/view"
)

// Format is an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatMarkdown}

// ParseFormat parses a format name; "md" is accepted for markdown and the
// empty string means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return FormatTable, fmt.Errorf("unknown output format %q (want table, json, csv or markdown)", s)
	}
}

// Renderer writes pages in one format.
type Renderer struct {
	w       io.Writer
	format  Format
	palette *Palette
}

// New returns a Renderer writing to w. Colour is decided by lipgloss from
// w: plain files and pipes get no escape codes.
func New(w io.Writer, format Format) *Renderer {
	return &Renderer{w: w, format: format, palette: NewPalette(lipgloss.NewRenderer(w))}
}

// Page writes one tab snapshot.
func (r *Renderer) Page(page *view.Page) error {
	switch r.format {
	case FormatJSON:
		return r.pageJSON(page)
	case FormatCSV, FormatMarkdown:
		t := newTable(r.w, page.Columns)
		for _, row := range page.Rows {
			t.AppendRow(cells(row, nil))
		}
		if r.format == FormatCSV {
			t.RenderCSV()
		} else {
			t.RenderMarkdown()
		}
		return nil
	default:
		return r.pageTable(page)
	}
}

func (r *Renderer) pageTable(page *view.Page) error {
	if len(page.Rows) == 0 {
		_, _ = fmt.Fprintf(r.w, "%s: (0 rows)\n", page.Tab)
		return nil
	}

	header := make([]string, len(page.Columns))
	for i, c := range page.Columns {
		header[i] = c
		if page.Sort != nil && strings.EqualFold(c, page.Sort.Column) {
			if page.Sort.Ascending {
				header[i] += " ▲"
			} else {
				header[i] += " ▼"
			}
		}
	}

	t := newTable(r.w, header)
	t.SetTitle(page.Tab)
	for _, row := range page.Rows {
		var style *lipgloss.Style
		if s, ok := r.palette.Style(row.Category, row.Stripe); ok {
			style = &s
		}
		t.AppendRow(cells(row, style))
	}
	t.Render()
	_, _ = fmt.Fprintf(r.w, "(%d rows)\n", len(page.Rows))
	return nil
}

func (r *Renderer) pageJSON(page *view.Page) error {
	rows := make([]map[string]*string, len(page.Rows))
	for i, row := range page.Rows {
		obj := make(map[string]*string, len(page.Columns))
		for j, col := range page.Columns {
			if v := row.Values[j]; v.Valid {
				s := v.String
				obj[col] = &s
			} else {
				obj[col] = nil
			}
		}
		rows[i] = obj
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// Records writes a plain listing such as the tab list or a tab's settings.
func (r *Renderer) Records(header []string, records [][]string) error {
	if r.format == FormatJSON {
		out := make([]map[string]string, len(records))
		for i, rec := range records {
			obj := make(map[string]string, len(header))
			for j, h := range header {
				if j < len(rec) {
					obj[strings.ToLower(h)] = rec[j]
				}
			}
			out[i] = obj
		}
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	t := newTable(r.w, header)
	for _, rec := range records {
		row := make(table.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		t.AppendRow(row)
	}
	switch r.format {
	case FormatCSV:
		t.RenderCSV()
	case FormatMarkdown:
		t.RenderMarkdown()
	default:
		t.Render()
	}
	return nil
}

func newTable(w io.Writer, header []string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	row := make(table.Row, len(header))
	for i, h := range header {
		row[i] = h
	}
	t.AppendHeader(row)
	return t
}

// cells converts a row to table cells. NULL renders empty.
func cells(row view.DisplayRow, style *lipgloss.Style) table.Row {
	out := make(table.Row, len(row.Values))
	for i, v := range row.Values {
		s := ""
		if v.Valid {
			s = v.String
		}
		if style != nil {
			s = style.Render(s)
		}
		out[i] = s
	}
	return out
}
