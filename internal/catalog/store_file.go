package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	colName     = "name"
	colQuantity = "quantity"
	colPrice    = "price"
)

var canonicalHeader = []string{colName, colQuantity, colPrice}

// headerAliases maps normalised header cells to canonical column names.
var headerAliases = map[string]string{
	"name":         colName,
	"product":      colName,
	"product_name": colName,
	"nama":         colName,
	"nama_product": colName,
	"nama_produk":  colName,

	"quantity":  colQuantity,
	"qty":       colQuantity,
	"stock":     colQuantity,
	"stok":      colQuantity,
	"kuantitas": colQuantity,

	"price":        colPrice,
	"unit_price":   colPrice,
	"price_cents":  colPrice,
	"harga":        colPrice,
	"harga_satuan": colPrice,
}

// FileStore keeps the catalog in a comma- or tab-delimited text file with a
// header row. The delimiter found on load is reused on save.
type FileStore struct {
	path string

	mu    sync.Mutex
	comma rune
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, comma: ','}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("catalog dir %s is not a directory", dir)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (Catalog, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, err
	}

	comma := detectDelimiter(raw)

	s.mu.Lock()
	s.comma = comma
	s.mu.Unlock()

	// Decode errors never match the caller-facing error kinds.
	c, err := decodeCatalog(bytes.NewReader(raw), comma)
	if err != nil {
		return nil, fmt.Errorf("load %s: %v", s.path, err)
	}
	return c, nil
}

func (s *FileStore) Save(ctx context.Context, c Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := encodeCatalog(tmp, c, s.comma); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

func detectDelimiter(raw []byte) rune {
	line, _, _ := bufio.NewReader(bytes.NewReader(raw)).ReadLine()
	if bytes.ContainsRune(line, '\t') {
		return '\t'
	}
	return ','
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func decodeCatalog(r io.Reader, comma rune) (Catalog, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, err
	}

	idx := map[string]int{}
	for i, h := range header {
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := idx[col]; !dup {
				idx[col] = i
			}
		}
	}
	for _, col := range canonicalHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing %q column in header %v", col, header)
		}
	}

	out := Catalog{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		p, err := parseRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseRow(rec []string, idx map[string]int) (Product, error) {
	field := func(col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	qty, err := parseAmount(field(colQuantity))
	if err != nil {
		return Product{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := parseAmount(field(colPrice))
	if err != nil {
		return Product{}, fmt.Errorf("price: %w", err)
	}

	return Product{Name: field(colName), Quantity: qty, Price: price}, nil
}

// parseAmount accepts integers, tolerating a zero fraction ("15000.0") as
// written by spreadsheet tools.
func parseAmount(s string) (int64, error) {
	if whole, frac, ok := strings.Cut(s, "."); ok && strings.Trim(frac, "0") == "" {
		s = whole
	}
	return strconv.ParseInt(s, 10, 64)
}

func encodeCatalog(w io.Writer, c Catalog, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(canonicalHeader); err != nil {
		return err
	}
	for _, p := range c {
		rec := []string{
			p.Name,
			strconv.FormatInt(p.Quantity, 10),
			strconv.FormatInt(p.Price, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
