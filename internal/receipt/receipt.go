// Package receipt assembles checkout lines into a receipt and renders it.
package receipt

import (
	"errors"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultCurrency = "Rp"

var ErrTotalOverflow = errors.New("total overflow")

type Line struct {
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

type Receipt struct {
	Title    string    `json:"title"`
	Currency string    `json:"currency"`
	Lines    []Line    `json:"lines"`
	Total    int64     `json:"total"`
	IssuedAt time.Time `json:"issued_at"`
}

// New computes subtotals and the grand total. Lines keep their order.
func New(title, currency string, lines []Line, now time.Time) (Receipt, error) {
	if currency == "" {
		currency = DefaultCurrency
	}

	out := make([]Line, 0, len(lines))
	var total int64
	for _, l := range lines {
		sub, ok := mul(l.UnitPrice, l.Quantity)
		if !ok || total > math.MaxInt64-sub {
			return Receipt{}, ErrTotalOverflow
		}
		l.Subtotal = sub
		total += sub
		out = append(out, l)
	}

	return Receipt{
		Title:    title,
		Currency: currency,
		Lines:    out,
		Total:    total,
		IssuedAt: now.UTC(),
	}, nil
}

func mul(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

var printer = message.NewPrinter(language.English)

// Amount formats v with thousands grouping, e.g. "Rp75,000".
func (r Receipt) Amount(v int64) string {
	return r.Currency + printer.Sprintf("%d", v)
}

// FormatLine renders "name xquantity @ unit_price = subtotal".
func (r Receipt) FormatLine(l Line) string {
	return printer.Sprintf("%s x%d @ %s = %s", l.Name, l.Quantity, r.Amount(l.UnitPrice), r.Amount(l.Subtotal))
}

func (r Receipt) TotalLine() string {
	return "Total: " + r.Amount(r.Total)
}

func (r Receipt) Text() string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n\n")
	for _, l := range r.Lines {
		b.WriteString(r.FormatLine(l))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(r.TotalLine())
	b.WriteByte('\n')
	return b.String()
}
