package receipt

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var issued = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func TestNew_Totals(t *testing.T) {
	r, err := New("Purchase Receipt", "", []Line{
		{Name: "Rice", Quantity: 5, UnitPrice: 15000},
		{Name: "Sugar", Quantity: 2, UnitPrice: 12500},
	}, issued)
	require.NoError(t, err)

	require.Equal(t, DefaultCurrency, r.Currency)
	require.EqualValues(t, 75000, r.Lines[0].Subtotal)
	require.EqualValues(t, 25000, r.Lines[1].Subtotal)
	require.EqualValues(t, 100000, r.Total)
}

func TestNew_Overflow(t *testing.T) {
	_, err := New("x", "", []Line{{Name: "Gold", Quantity: 2, UnitPrice: math.MaxInt64}}, issued)
	require.ErrorIs(t, err, ErrTotalOverflow)

	_, err = New("x", "", []Line{
		{Name: "A", Quantity: 1, UnitPrice: math.MaxInt64},
		{Name: "B", Quantity: 1, UnitPrice: 1},
	}, issued)
	require.ErrorIs(t, err, ErrTotalOverflow)
}

func TestReceipt_Text(t *testing.T) {
	r, err := New("Purchase Receipt", "Rp", []Line{
		{Name: "Rice", Quantity: 5, UnitPrice: 15000},
	}, issued)
	require.NoError(t, err)

	require.Equal(t, "Rice x5 @ Rp15,000 = Rp75,000", r.FormatLine(r.Lines[0]))
	require.Equal(t, "Purchase Receipt\n\nRice x5 @ Rp15,000 = Rp75,000\n\nTotal: Rp75,000\n", r.Text())
}

func TestReceipt_PDF(t *testing.T) {
	r, err := New("Purchase Receipt", "Rp", []Line{
		{Name: "Rice", Quantity: 5, UnitPrice: 15000},
	}, issued)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.WritePDF(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	path := filepath.Join(t.TempDir(), "out", "receipt.pdf")
	require.NoError(t, r.SavePDF(path))
	require.NoError(t, r.SavePDF(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
