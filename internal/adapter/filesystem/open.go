package filesystem

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

// CompressedSuffix marks grid files stored with zstd compression.
const CompressedSuffix = ".zst"

// OpenGrid opens a grid file, transparently decompressing .zst files.
func OpenGrid(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid: %w", err)
	}
	if !strings.HasSuffix(path, CompressedSuffix) {
		return f, nil
	}

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open zstd grid: %w", err)
	}
	return &zstdFile{Decoder: dec, f: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

// ReadGrid opens and parses a grid file.
func ReadGrid(path string) ([]domain.SamplePoint, error) {
	rc, err := OpenGrid(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return domain.ParseGrid(rc, path)
}

// LoadBoundary opens and parses a boundary (.bln) file.
func LoadBoundary(path string) (domain.BoundaryPolygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.BoundaryPolygon{}, fmt.Errorf("open boundary: %w", err)
	}
	defer f.Close()

	return domain.ParseContour(f, path)
}
