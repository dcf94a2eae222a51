package receipt

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 190
	lineHeight = 10
	fontFamily = "Arial"
	fontSize   = 12
)

// WritePDF renders r as a single A4 page: centred title, one cell per line,
// bold total.
func (r Receipt) WritePDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(r.IssuedAt)
	pdf.SetTitle(r.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(fontFamily, "", fontSize)
	pdf.CellFormat(pageWidth, lineHeight, tr(r.Title), "", 1, "C", false, 0, "")
	pdf.Ln(lineHeight)

	for _, l := range r.Lines {
		pdf.CellFormat(pageWidth, lineHeight, tr(r.FormatLine(l)), "", 1, "L", false, 0, "")
	}

	pdf.Ln(lineHeight)
	pdf.SetFont(fontFamily, "B", fontSize)
	pdf.CellFormat(pageWidth, lineHeight, tr(r.TotalLine()), "", 1, "L", false, 0, "")

	return pdf.Output(w)
}

// SavePDF writes the receipt to path, replacing any previous file.
func (r Receipt) SavePDF(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".receipt-*.pdf")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := r.WritePDF(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
