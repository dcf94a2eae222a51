package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrAssetNotFound = errors.New("asset not found")

// Extensions are tried in order.
var Extensions = []string{".jpg", ".png"}

type Dir struct {
	Root string
}

// Key normalises a product name into an asset file stem: "Beras Merah" -> "beras_merah".
func Key(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

func (d Dir) Lookup(name string) (string, error) {
	key := Key(name)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrAssetNotFound, name)
	}

	for _, ext := range Extensions {
		path := filepath.Join(d.Root, key+ext)
		st, err := os.Stat(path)
		if err == nil && st.Mode().IsRegular() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %q", ErrAssetNotFound, name)
}
