package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/pkg/tilepack"
)

// Datasource is the external fetch layer: given a tile key it returns the
// raw payload bytes. The core only consumes the resulting loading-state
// transitions; decoding and validation happen upstream of the scope.
type Datasource interface {
	Fetch(ctx context.Context, key grid.Key) ([]byte, error)
}

// URLScheme enumerates how tile keys map onto datasource paths/URLs.
type URLScheme int

const (
	// SchemeZoomXY lays tiles out as zoom/x/y.
	SchemeZoomXY URLScheme = iota
	// SchemeZoomYX lays tiles out as zoom/y/x.
	SchemeZoomYX
)

// TilePath formats a tile key per the scheme. Square power-of-two grids go
// through maptile so the z/x/y triple matches standard slippy addressing.
func TilePath(key grid.Key, scheme URLScheme) string {
	z, x, y := key.Zoom(), key.Index.X, key.Index.Y
	if key.Dims.X == key.Dims.Y {
		t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
		z, x, y = int(t.Z), int(t.X), int(t.Y)
	}
	if scheme == SchemeZoomYX {
		return fmt.Sprintf("%d/%d/%d", z, y, x)
	}
	return fmt.Sprintf("%d/%d/%d", z, x, y)
}

// FileDatasource serves tile payloads from a directory tree laid out per
// its URL scheme, e.g. root/4/7/5.bin.
type FileDatasource struct {
	Root   string
	Scheme URLScheme
	// Ext is appended to tile paths; defaults to ".bin".
	Ext string
}

// Fetch reads the tile payload from disk.
func (d *FileDatasource) Fetch(ctx context.Context, key grid.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext := d.Ext
	if ext == "" {
		ext = ".bin"
	}
	path := filepath.Join(d.Root, filepath.FromSlash(TilePath(key, d.Scheme))+ext)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", key, err)
	}
	return raw, nil
}

// WriteTile stores a payload at the key's path, creating directories as
// needed. Test and tooling helper.
func (d *FileDatasource) WriteTile(key grid.Key, raw []byte) error {
	ext := d.Ext
	if ext == "" {
		ext = ".bin"
	}
	path := filepath.Join(d.Root, filepath.FromSlash(TilePath(key, d.Scheme))+ext)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// PackDatasource serves tile payloads from a tilepack archive. The whole
// tile set ships as one file; lookups address entries by their scheme
// path.
type PackDatasource struct {
	archive *tilepack.Archive
	scheme  URLScheme
}

// OpenPack opens a tile pack as a datasource.
func OpenPack(path string, scheme URLScheme) (*PackDatasource, error) {
	a, err := tilepack.Open(path)
	if err != nil {
		return nil, err
	}
	return &PackDatasource{archive: a, scheme: scheme}, nil
}

// Fetch reads the tile payload from the archive.
func (d *PackDatasource) Fetch(ctx context.Context, key grid.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := d.archive.Read(TilePath(key, d.scheme))
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", key, err)
	}
	return raw, nil
}

// Close releases the underlying archive.
func (d *PackDatasource) Close() error { return d.archive.Close() }

// FuncDatasource adapts a function to the Datasource interface.
type FuncDatasource func(ctx context.Context, key grid.Key) ([]byte, error)

// Fetch implements Datasource.
func (f FuncDatasource) Fetch(ctx context.Context, key grid.Key) ([]byte, error) {
	return f(ctx, key)
}

// ParseScheme converts a config string to a URLScheme.
func ParseScheme(s string) URLScheme {
	if strings.EqualFold(s, "zoomyx") {
		return SchemeZoomYX
	}
	return SchemeZoomXY
}
