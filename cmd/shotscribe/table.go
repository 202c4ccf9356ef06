package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Cells wider than MaxWidth wrap on word
// boundaries; zero leaves the column unbounded.
type column struct {
	Header   string
	Right    bool
	MaxWidth int
}

// listing is a titled grid of rows with an optional summary footer.
type listing struct {
	Title   string
	Columns []column
	Rows    [][]string
	Footer  []string
}

func (l listing) render() string {
	if len(l.Columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle(l.Title)

	headers := make([]string, len(l.Columns))
	configs := make([]table.ColumnConfig, len(l.Columns))
	for i, col := range l.Columns {
		headers[i] = col.Header
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, Align: text.AlignLeft}
		if col.Right {
			configs[i].Align = text.AlignRight
			configs[i].AlignFooter = text.AlignRight
		}
		if col.MaxWidth > 0 {
			configs[i].WidthMax = col.MaxWidth
			configs[i].WidthMaxEnforcer = text.WrapSoft
		}
	}
	tw.SetColumnConfigs(configs)
	tw.AppendHeader(l.row(headers))
	for _, values := range l.Rows {
		tw.AppendRow(l.row(values))
	}
	if len(l.Footer) > 0 {
		tw.AppendFooter(l.row(l.Footer))
	}
	return tw.Render()
}

// row pads or truncates values to the column count.
func (l listing) row(values []string) table.Row {
	r := make(table.Row, len(l.Columns))
	for i := range r {
		r[i] = ""
		if i < len(values) {
			r[i] = values[i]
		}
	}
	return r
}
