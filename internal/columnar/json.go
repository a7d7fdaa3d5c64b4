package columnar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xde719/pandaflow/internal/domain"
)

// WriteRawJSON writes the untransformed vendor records for one city as a
// JSON array, next to the city's Parquet file. The snapshot preserves the
// exact upstream payload for debugging schema drift.
func (w *Writer) WriteRawJSON(cityID string, runTS time.Time, records []domain.VendorRecord) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}

	path := filepath.Join(w.dir, fmt.Sprintf("vendors_%s_%d.json", cityID, runTS.Unix()))
	f, err := os.Create(path)
	if err != nil {
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}

	bw := bufio.NewWriter(f)
	if _, err := bw.WriteString("[\n"); err != nil {
		f.Close()
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}
	enc := json.NewEncoder(bw)
	for i, record := range records {
		if i > 0 {
			if _, err := bw.WriteString(",\n"); err != nil {
				f.Close()
				return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
			}
		}
		if err := enc.Encode(record); err != nil {
			f.Close()
			return "", &domain.WriteError{Kind: domain.WriteEncoding, Err: err}
		}
	}
	if _, err := bw.WriteString("]\n"); err != nil {
		f.Close()
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &domain.WriteError{Kind: domain.WriteIO, Err: err}
	}

	return path, nil
}
