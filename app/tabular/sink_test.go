package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"prix-harvest/app/product"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestAppendFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobiles", "mobiles.csv")
	sink := NewSink(path)

	err := sink.Append([]product.Record{
		{"Name": "Phone A", "Price": float64(19999), "General.RAM": "8 GB"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("Expected header plus 1 row, got: %d rows", len(rows))
	}

	expectedHeader := []string{"General.RAM", "Name", "Price"}
	if !reflect.DeepEqual(rows[0], expectedHeader) {
		t.Errorf("Expected header %v, got: %v", expectedHeader, rows[0])
	}
	if !reflect.DeepEqual(rows[1], []string{"8 GB", "Phone A", "19999"}) {
		t.Errorf("Unexpected row: %v", rows[1])
	}
}

func TestAppendUnionsColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobiles.csv")
	sink := NewSink(path)

	if err := sink.Append([]product.Record{{"Name": "Phone A", "General.RAM": "8 GB"}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := sink.Append([]product.Record{{"Name": "Phone B", "Display.Size": "6.7 inches"}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	rows := readCSV(t, path)
	expectedHeader := []string{"Display.Size", "General.RAM", "Name"}
	if !reflect.DeepEqual(rows[0], expectedHeader) {
		t.Errorf("Expected union header %v, got: %v", expectedHeader, rows[0])
	}

	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got: %d rows", len(rows))
	}

	// Existing row first, new row appended; missing cells empty.
	if !reflect.DeepEqual(rows[1], []string{"", "8 GB", "Phone A"}) {
		t.Errorf("Unexpected historical row: %v", rows[1])
	}
	if !reflect.DeepEqual(rows[2], []string{"6.7 inches", "", "Phone B"}) {
		t.Errorf("Unexpected appended row: %v", rows[2])
	}
}

func TestAppendEmptyIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobiles.csv")
	sink := NewSink(path)

	if err := sink.Append([]product.Record{{"Name": "Phone A"}}); err != nil {
		t.Fatal(err)
	}
	before := readCSV(t, path)

	if err := sink.Append(nil); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	after := readCSV(t, path)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("Expected store unchanged, got %v vs %v", before, after)
	}
}

func TestAppendCorruptStoreIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobiles.csv")
	if err := os.WriteFile(path, []byte("\"unterminated\nName\nrow"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := NewSink(path)
	if err := sink.Append([]product.Record{{"Name": "Phone A"}}); err == nil {
		t.Fatal("Expected error for corrupt store")
	}

	// The corrupt file must be left untouched.
	data, _ := os.ReadFile(path)
	if string(data) != "\"unterminated\nName\nrow" {
		t.Error("Expected corrupt store to be preserved")
	}
}

func TestAppendValueRendering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobiles.csv")
	sink := NewSink(path)

	err := sink.Append([]product.Record{{
		"Name":       "Phone A",
		"Price":      float64(15999),
		"Price Drop": true,
		"Missing":    nil,
		"Nested":     []any{"a", "b"},
	}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	rows := readCSV(t, path)
	header := rows[0]
	row := rows[1]
	byName := make(map[string]string, len(header))
	for i, name := range header {
		byName[name] = row[i]
	}

	if byName["Price"] != "15999" {
		t.Errorf("Expected numeric cell '15999', got: %q", byName["Price"])
	}
	if byName["Price Drop"] != "true" {
		t.Errorf("Expected boolean cell 'true', got: %q", byName["Price Drop"])
	}
	if byName["Missing"] != "" {
		t.Errorf("Expected empty cell for nil, got: %q", byName["Missing"])
	}
	if byName["Nested"] != `["a","b"]` {
		t.Errorf("Expected JSON cell for nested value, got: %q", byName["Nested"])
	}
}

func TestCountAndColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobiles.csv")
	sink := NewSink(path)

	count, err := sink.Count()
	if err != nil {
		t.Fatalf("Expected no error for missing store, got: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 rows, got: %d", count)
	}

	if err := sink.Append([]product.Record{{"Name": "A"}, {"Name": "B"}}); err != nil {
		t.Fatal(err)
	}

	count, err = sink.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got: %d", count)
	}

	columns, err := sink.Columns()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(columns, []string{"Name"}) {
		t.Errorf("Expected columns [Name], got: %v", columns)
	}
}
