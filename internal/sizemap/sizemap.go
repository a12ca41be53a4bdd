// Package sizemap loads the static lookup from local catalog size labels to
// the marketplace's size identifiers.
package sizemap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Size is the remote representation of a local size label.
type Size struct {
	ID    int
	Label string
}

// Table maps local size values to remote sizes. Loaded once per run and
// read-only afterwards.
type Table struct {
	entries map[string]Size
}

// Load reads the mapping from a CSV file with the columns
// local_value,size_id,remote_value.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening size mapping: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads the mapping from CSV content. The header row names the
// columns; extra columns are ignored.
func Parse(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading size mapping: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("size mapping is empty")
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"local_value", "size_id", "remote_value"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("size mapping: missing column %q", required)
		}
	}

	entries := make(map[string]Size, len(records)-1)
	for _, record := range records[1:] {
		raw := strings.TrimSpace(record[columns["size_id"]])
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("size mapping: bad size_id %q: %w", raw, err)
		}
		local := strings.TrimSpace(record[columns["local_value"]])
		entries[local] = Size{
			ID:    id,
			Label: strings.TrimSpace(record[columns["remote_value"]]),
		}
	}

	return &Table{entries: entries}, nil
}

// Lookup resolves a local size label. The second return value is false when
// the label has no mapping.
func (t *Table) Lookup(localValue string) (Size, bool) {
	size, ok := t.entries[strings.TrimSpace(localValue)]
	return size, ok
}

// Len returns the number of mapped labels.
func (t *Table) Len() int {
	return len(t.entries)
}
