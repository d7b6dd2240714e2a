// Package receipt turns an order into the ESC/POS byte stream of its receipt.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/Riboost-Studio/print-station/internal/escpos"
	"github.com/Riboost-Studio/print-station/internal/model"
)

// DefaultLine is the bucket for items without a preparation line.
const DefaultLine = "GENERALE"

const timestampLayout = "02/01/2006 15:04:05"

// Compiler is stateless once built and safe for concurrent use.
type Compiler struct {
	opts Options
}

func New(opts Options) (*Compiler, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("receipt options: %w", err)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Compiler{opts: opts}, nil
}

func (c *Compiler) Options() Options { return c.opts }

// Compile renders the full receipt followed, when line cuts are enabled, by
// one slip per preparation line. The output depends only on order and the
// options.
func (c *Compiler) Compile(order model.Order) []byte {
	b := escpos.NewBuilder(c.opts.CodePage)
	b.Init()
	if c.opts.Logo != nil {
		b.Align(escpos.AlignCenter)
		b.Image(c.opts.Logo, c.opts.LogoDots)
		b.Align(escpos.AlignLeft)
	}

	c.header(b)
	c.metadata(b, order)
	c.summaryHeading(b)
	c.items(b, order.Items)
	c.total(b, order.Total)
	c.footer(b)

	if c.opts.LineCuts {
		for _, g := range GroupByLine(order.Items) {
			c.lineSegment(b, g)
		}
	}
	return b.Bytes()
}

// FormatAmount prefixes the two-decimal amount with the currency.
func (c *Compiler) FormatAmount(m model.Money) string {
	if c.opts.Currency == "" {
		return m.Fixed()
	}
	return c.opts.Currency + " " + m.Fixed()
}

func (c *Compiler) header(b *escpos.Builder) {
	b.Align(escpos.AlignCenter)
	b.Bold(true)
	b.Mode(escpos.ModeDoubleSize)
	b.Line(c.opts.Title)
	b.Mode(escpos.ModeNormal)
	b.Bold(false)
	b.Align(escpos.AlignLeft)
	b.Line(separator(c.opts.SeparatorChar, c.opts.Width))
}

func (c *Compiler) metadata(b *escpos.Builder, order model.Order) {
	when := "-"
	if !order.CreatedAt.IsZero() {
		when = order.CreatedAt.In(c.opts.Location).Format(timestampLayout)
	}
	station := order.Station
	if station == "" {
		station = "N/A"
	}

	b.Line("Data: " + when)
	b.Line(fmt.Sprintf("Ordine: %d", order.CustomerNumber))
	b.Line("Stazione: " + station)
	b.Feed(1)
}

func (c *Compiler) summaryHeading(b *escpos.Builder) {
	b.Align(escpos.AlignCenter)
	b.Bold(true)
	b.Line("RIEPILOGO ORDINE")
	b.Bold(false)
	b.Align(escpos.AlignLeft)
	b.Feed(1)
}

func (c *Compiler) items(b *escpos.Builder, items []model.Item) {
	for _, item := range items {
		b.Line(fmt.Sprintf("%dx %s", item.Quantity, item.Name))
		b.Line(PriceLine("", c.FormatAmount(item.LineTotal()), c.opts.Width))
	}
}

func (c *Compiler) total(b *escpos.Builder, total model.Money) {
	b.Line(separator(c.opts.ItemSeparatorChar, c.opts.Width))
	b.Bold(true)
	b.Line(PriceLine("TOTALE:", c.FormatAmount(total), c.opts.Width))
	b.Bold(false)
	b.Line(separator(c.opts.SeparatorChar, c.opts.Width))
}

func (c *Compiler) footer(b *escpos.Builder) {
	if c.opts.Footer != "" {
		b.Align(escpos.AlignCenter)
		b.Line(c.opts.Footer)
		b.Align(escpos.AlignLeft)
	}
	b.Feed(5)
	b.Cut(escpos.CutFull)
}

func (c *Compiler) lineSegment(b *escpos.Builder, g Group) {
	b.Align(escpos.AlignCenter)
	b.Bold(true)
	b.Mode(escpos.ModeDoubleSize)
	b.Line(g.Name)
	b.Mode(escpos.ModeNormal)
	b.Bold(false)
	b.Align(escpos.AlignLeft)
	b.Feed(1)

	for _, item := range g.Items {
		b.Line(fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}

	b.Feed(5)
	b.Cut(escpos.CutFull)
}

// Group is the items of one preparation line.
type Group struct {
	Name  string
	Items []model.Item
}

// GroupByLine buckets items by upper-cased preparation line, in order of
// first appearance. Items without a line go to DefaultLine.
func GroupByLine(items []model.Item) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, item := range items {
		name := strings.ToUpper(strings.TrimSpace(item.PreparationLine))
		if name == "" {
			name = DefaultLine
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
