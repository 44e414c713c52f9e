package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// Long descriptions and model errors are cut at this width.
const cellWidthMax = 60

// listing is a rounded go-pretty table whose numeric columns are right aligned.
type listing struct {
	tw      table.Writer
	width   int
	numeric map[int]bool
}

func newListing(headers ...string) *listing {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	head := make(table.Row, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	tw.AppendHeader(head)
	return &listing{tw: tw, width: len(headers), numeric: map[int]bool{}}
}

// alignRight marks 1-based column numbers as numeric.
func (l *listing) alignRight(columns ...int) *listing {
	for _, c := range columns {
		l.numeric[c] = true
	}
	return l
}

// add appends a row, padding or cutting it to the header width.
func (l *listing) add(cells ...string) {
	row := make(table.Row, l.width)
	for i := 0; i < l.width && i < len(cells); i++ {
		row[i] = cells[i]
	}
	l.tw.AppendRow(row)
}

func (l *listing) String() string {
	if l.width == 0 {
		return ""
	}
	configs := make([]table.ColumnConfig, l.width)
	for i := range configs {
		align := text.AlignLeft
		if l.numeric[i+1] {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         cellWidthMax,
			WidthMaxEnforcer: text.Trim,
		}
	}
	l.tw.SetColumnConfigs(configs)
	return l.tw.Render()
}

// isTerminal reports whether w is an interactive console.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
