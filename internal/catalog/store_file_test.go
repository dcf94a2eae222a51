package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileStore_LoadMissingIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.csv"))

	c, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, c)
	require.NotNil(t, c)
}

func TestFileStore_LegacyHeaders(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "comma canonical",
			body: "name,quantity,price\nRice,10,15000\nSugar,0,12000\n",
		},
		{
			name: "comma legacy",
			body: "Nama_Product,Kuantitas,Harga\nRice,10,15000\nSugar,0,12000\n",
		},
		{
			name: "tab legacy price header",
			body: "Nama_Product\tKuantitas\tHarga Satuan\nRice\t10\t15000.0\nSugar\t0\t12000\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFileStore(writeFile(t, tt.body))

			c, err := s.Load(context.Background())
			require.NoError(t, err)
			require.Equal(t, seed(), c)
		})
	}
}

func TestFileStore_SaveKeepsDelimiter(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "Nama_Product\tKuantitas\tHarga\nRice\t10\t15000\n")
	s := NewFileStore(path)

	c, err := s.Load(ctx)
	require.NoError(t, err)

	c, err = c.WithStockAdded("Rice", 5)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, c))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "name\tquantity\tprice\nRice\t15\t15000\n", string(raw))

	again, err := NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, c, again)
}

func TestFileStore_SaveNewFileUsesComma(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	s := NewFileStore(path)

	require.NoError(t, s.Save(ctx, seed()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "name,quantity,price\nRice,10,15000\nSugar,0,12000\n", string(raw))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_RejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing price column", body: "name,quantity\nRice,10\n"},
		{name: "negative quantity", body: "name,quantity,price\nRice,-1,100\n"},
		{name: "duplicate name", body: "name,quantity,price\nRice,1,100\nRice,2,100\n"},
		{name: "non numeric", body: "name,quantity,price\nRice,ten,100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileStore(writeFile(t, tt.body)).Load(context.Background())
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrInvalidQuantity)
			require.NotErrorIs(t, err, ErrDuplicateProduct)
		})
	}
}

func TestFileStore_SaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	s := NewFileStore(path)

	err := s.Save(context.Background(), Catalog{{Name: "Rice", Quantity: -2}})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}
