package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"prix-harvest/app/product"
)

// Sink persists flattened records as a single CSV file. Because spec columns
// vary per product model the schema is not known in advance, so every append
// reloads the accumulated store, unions the column sets and rewrites the
// whole file with columns in lexicographic order. Historical rows are never
// dropped; cells for columns a row does not have stay empty.
type Sink struct {
	path string
}

func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Append merges new records into the store. An unreadable existing store is
// a fatal condition: a blind rewrite would destroy historical data.
func (s *Sink) Append(records []product.Record) error {
	if len(records) == 0 {
		return nil
	}

	columns, rows, err := s.read()
	if err != nil {
		return err
	}

	columnSet := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		columnSet[name] = struct{}{}
	}
	for _, record := range records {
		for name := range record {
			columnSet[name] = struct{}{}
		}
	}

	merged := make([]string, 0, len(columnSet))
	for name := range columnSet {
		merged = append(merged, name)
	}
	sort.Strings(merged)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to open store for rewrite: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(merged); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		out := make([]string, len(merged))
		for i, name := range merged {
			out[i] = row[name]
		}
		if err := w.Write(out); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	for _, record := range records {
		out := make([]string, len(merged))
		for i, name := range merged {
			if value, ok := record[name]; ok {
				out[i] = cellText(value)
			}
		}
		if err := w.Write(out); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	return nil
}

// Columns returns the store's current header, nil when no store exists yet.
func (s *Sink) Columns() ([]string, error) {
	columns, _, err := s.read()
	return columns, err
}

// Count returns the number of data rows in the store.
func (s *Sink) Count() (int, error) {
	_, rows, err := s.read()
	return len(rows), err
}

// read loads the existing store as a header plus column-keyed rows. A
// missing or empty file yields an empty store.
func (s *Sink) read() ([]string, []map[string]string, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open existing store: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat existing store: %w", err)
	}
	if info.Size() == 0 {
		return nil, nil, nil
	}

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse existing store: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}

	columns := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, raw := range all[1:] {
		row := make(map[string]string, len(columns))
		for i, name := range columns {
			if i < len(raw) {
				row[name] = raw[i]
			}
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}

// cellText renders one record value as a CSV cell. Nested structures that
// were not pre-serialized upstream become JSON text.
func cellText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
