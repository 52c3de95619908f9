package product

import (
	"encoding/json"
)

// Flattener converts one nested page-info payload into a flat Record. The
// payload shape is not contractually guaranteed, so every nested access is
// optional: missing pieces degrade to nil values or absent columns, never to
// a panic or an error.
type Flattener struct{}

func NewFlattener() *Flattener {
	return &Flattener{}
}

func (f *Flattener) Run(doc map[string]any, lastModified *string) Record {
	record := make(Record)

	item := asMap(doc["item"])

	// Every fullSpecs category contributes one "<category>.<spec>" column
	// per titled spec entry. Untitled categories or entries are skipped;
	// a repeated column name within one record is last-write-wins.
	for _, rawCategory := range asSlice(item["fullSpecs"]) {
		category := asMap(rawCategory)
		categoryTitle := asString(category["title"])
		if categoryTitle == "" {
			continue
		}
		for _, rawSpec := range asSlice(category["items"]) {
			spec := asMap(rawSpec)
			specTitle := asString(spec["title"])
			if specTitle == "" {
				continue
			}
			record[categoryTitle+"."+specTitle] = spec["description"]
		}
	}

	record[FieldName] = item["name"]
	record[FieldBrand] = asMap(item["brand"])["name"]
	record[FieldPrice] = item["price"]
	record[FieldPriceDrop] = item["priceDrop"]
	record[FieldPriceDropAmount] = item["priceDropAmount"]
	if lastModified != nil {
		record[FieldLastModified] = *lastModified
	} else {
		record[FieldLastModified] = nil
	}
	record[FieldRelatedItems] = f.relatedItems(item)

	return record
}

// relatedItem keeps the serialized field names the store has always used.
type relatedItem struct {
	Name  any `json:"Name"`
	Price any `json:"Price"`
}

// relatedItems summarizes the related-products list as JSON array text.
// Always valid JSON, "[]" when the list is absent.
func (f *Flattener) relatedItems(item map[string]any) string {
	products := asSlice(asMap(item["relatedItems"])["products"])

	related := make([]relatedItem, 0, len(products))
	for _, rawProduct := range products {
		p := asMap(rawProduct)
		related = append(related, relatedItem{Name: p["name"], Price: p["price"]})
	}

	data, err := json.Marshal(related)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
