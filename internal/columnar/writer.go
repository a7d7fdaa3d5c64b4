// Package columnar serializes transformed vendor rows into Parquet files,
// one file per city per run. Rows are buffered by the caller and written in
// a single batch so a mid-run failure never leaves a truncated row group.
package columnar

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/xde719/pandaflow/internal/domain"
)

// Writer creates columnar files under a scratch directory. Each city job
// writes to its own path, so concurrent jobs never touch the same file.
type Writer struct {
	dir string
}

// NewWriter returns a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteCity writes all rows for one city into a new Parquet file named after
// the city and the run timestamp, and returns the file path. The schema is
// embedded in the file, so downstream readers need no external registry.
func (w *Writer) WriteCity(cityID string, runTS time.Time, rows []domain.VendorRow) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}

	path := filepath.Join(w.dir, fmt.Sprintf("vendors_%s_%d.parquet", cityID, runTS.Unix()))
	f, err := os.Create(path)
	if err != nil {
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}

	pw := parquet.NewGenericWriter[domain.VendorRow](f, parquet.Compression(&parquet.Zstd))
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			f.Close()
			return "", &domain.WriteError{Kind: domain.WriteEncoding, Err: err}
		}
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return "", &domain.WriteError{Kind: domain.WriteEncoding, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}

	return path, nil
}
