package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"flight-scraper/models"
)

// RawDumpWriter archives unparsed listing fragments to a CSV file so broken
// selectors can be debugged offline. It is safe for concurrent use.
type RawDumpWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewRawDumpWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewRawDumpWriter(path string) (*RawDumpWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{"scraped_at", "source", "fragment"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &RawDumpWriter{file: f, writer: w}, nil
}

// Append records one scrape's raw fragments. Field-mode fragments are
// flattened into a single pipe-separated line.
func (c *RawDumpWriter) Append(fragments []models.RawFragment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, frag := range fragments {
		text := frag.Text
		if frag.Fields != nil {
			f := frag.Fields
			text = f.Airline + "|" + f.DepartureTime + "|" + f.ArrivalTime + f.DayOffset +
				"|" + f.Stops + "|" + f.Duration + "|" + f.Price
		}
		if err := c.writer.Write([]string{now, frag.Source, text}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *RawDumpWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
