package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/teemow/contactstats/internal/stats"
)

// DefaultPath is the output file used when none is configured.
const DefaultPath = "email_stats.csv"

// Header is the first CSV row.
var Header = []string{"Email Address", "Sent", "Received", "Total", "First Email", "Last Email"}

// WriteCSV writes the header and one row per address, in result order.
// Missing dates are written as empty cells.
func WriteCSV(w io.Writer, result *stats.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for address, s := range result.All() {
		row := []string{
			address,
			strconv.Itoa(s.Sent),
			strconv.Itoa(s.Received),
			strconv.Itoa(s.Total),
			s.FirstEmail(),
			s.LastEmail(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", address, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// SaveCSV replaces the file at path with the CSV export of result.
// The file is written to a temporary sibling and renamed into place.
func SaveCSV(path string, result *stats.Result) (err error) {
	if path == "" {
		path = DefaultPath
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteCSV(tmp, result); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move CSV into place at %s: %w", path, err)
	}
	return nil
}
