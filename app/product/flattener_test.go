package product

import (
	"encoding/json"
	"testing"
)

func decodePayload(t *testing.T, payload string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return doc
}

func TestFlattenFullPayload(t *testing.T) {
	doc := decodePayload(t, `{
		"item": {
			"name": "Apple iPhone 15",
			"brand": {"name": "Apple"},
			"price": 71999,
			"priceDrop": true,
			"priceDropAmount": 3000,
			"fullSpecs": [
				{
					"title": "General",
					"items": [
						{"title": "Launch Date", "description": "September 22, 2023"},
						{"title": "Operating System", "description": "iOS v17"}
					]
				},
				{
					"title": "Display",
					"items": [
						{"title": "Size", "description": "6.1 inches"}
					]
				}
			],
			"relatedItems": {
				"products": [
					{"name": "Apple iPhone 14", "price": 58999},
					{"name": "Apple iPhone 15 Plus", "price": 81999}
				]
			}
		}
	}`)

	lastmod := "2024-05-01"
	record := NewFlattener().Run(doc, &lastmod)

	if record[FieldName] != "Apple iPhone 15" {
		t.Errorf("Expected name 'Apple iPhone 15', got: %v", record[FieldName])
	}
	if record[FieldBrand] != "Apple" {
		t.Errorf("Expected brand 'Apple', got: %v", record[FieldBrand])
	}
	if record[FieldPrice] != float64(71999) {
		t.Errorf("Expected price 71999, got: %v", record[FieldPrice])
	}
	if record[FieldLastModified] != "2024-05-01" {
		t.Errorf("Expected last modified '2024-05-01', got: %v", record[FieldLastModified])
	}

	if record["General.Launch Date"] != "September 22, 2023" {
		t.Errorf("Expected spec column 'General.Launch Date', got: %v", record["General.Launch Date"])
	}
	if record["Display.Size"] != "6.1 inches" {
		t.Errorf("Expected spec column 'Display.Size', got: %v", record["Display.Size"])
	}

	var related []map[string]any
	relatedText, ok := record[FieldRelatedItems].(string)
	if !ok {
		t.Fatalf("Expected related items to be a string, got: %T", record[FieldRelatedItems])
	}
	if err := json.Unmarshal([]byte(relatedText), &related); err != nil {
		t.Fatalf("Expected valid JSON array, got %q: %v", relatedText, err)
	}
	if len(related) != 2 {
		t.Fatalf("Expected 2 related items, got: %d", len(related))
	}
	if related[0]["Name"] != "Apple iPhone 14" {
		t.Errorf("Expected related name 'Apple iPhone 14', got: %v", related[0]["Name"])
	}
}

func TestFlattenCoreFieldsAlwaysPresent(t *testing.T) {
	record := NewFlattener().Run(map[string]any{}, nil)

	for _, field := range CoreFields() {
		if _, ok := record[field]; !ok {
			t.Errorf("Expected core field %q to be present", field)
		}
	}

	if record[FieldName] != nil {
		t.Errorf("Expected nil name for empty payload, got: %v", record[FieldName])
	}
	if record[FieldRelatedItems] != "[]" {
		t.Errorf("Expected empty related items '[]', got: %v", record[FieldRelatedItems])
	}
}

func TestFlattenSkipsUntitledEntries(t *testing.T) {
	doc := decodePayload(t, `{
		"item": {
			"fullSpecs": [
				{"items": [{"title": "Ignored", "description": "no category title"}]},
				{"title": "General", "items": [
					{"description": "no spec title"},
					{"title": "Kept", "description": "value"}
				]}
			]
		}
	}`)

	record := NewFlattener().Run(doc, nil)

	if record["General.Kept"] != "value" {
		t.Errorf("Expected 'General.Kept' column, got: %v", record["General.Kept"])
	}

	specColumns := 0
	for name := range record {
		core := false
		for _, field := range CoreFields() {
			if name == field {
				core = true
				break
			}
		}
		if !core {
			specColumns++
		}
	}
	if specColumns != 1 {
		t.Errorf("Expected exactly 1 spec column, got: %d", specColumns)
	}
}

func TestFlattenDuplicateSpecLastWins(t *testing.T) {
	doc := decodePayload(t, `{
		"item": {
			"fullSpecs": [
				{"title": "General", "items": [
					{"title": "RAM", "description": "8 GB"},
					{"title": "RAM", "description": "12 GB"}
				]}
			]
		}
	}`)

	record := NewFlattener().Run(doc, nil)
	if record["General.RAM"] != "12 GB" {
		t.Errorf("Expected later occurrence to win, got: %v", record["General.RAM"])
	}
}

func TestFlattenMalformedShapes(t *testing.T) {
	// Wrong types everywhere must degrade, not panic.
	doc := decodePayload(t, `{
		"item": {
			"brand": "not-an-object",
			"fullSpecs": "not-a-list",
			"relatedItems": {"products": "not-a-list"}
		}
	}`)

	record := NewFlattener().Run(doc, nil)

	if record[FieldBrand] != nil {
		t.Errorf("Expected nil brand, got: %v", record[FieldBrand])
	}
	if record[FieldRelatedItems] != "[]" {
		t.Errorf("Expected '[]' related items, got: %v", record[FieldRelatedItems])
	}
}
