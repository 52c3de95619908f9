package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Parser extracts candidate entries from a sitemap-style urlset document.
// Element matching is namespace-agnostic: only local names are compared, so
// documents with or without the sitemap namespace (or with prefixes) parse
// the same way. Locations that do not end in the product path pattern are
// dropped silently.
type Parser struct {
	pattern *regexp.Regexp
}

// NewParser builds a parser for one product type. The pattern anchors to the
// end of the location URL: "/<pathSegment>/<slug>".
func NewParser(pathSegment string) (*Parser, error) {
	pattern, err := regexp.Compile("/" + regexp.QuoteMeta(pathSegment) + "/[^/]+$")
	if err != nil {
		return nil, fmt.Errorf("failed to compile path pattern: %w", err)
	}
	return &Parser{pattern: pattern}, nil
}

func (p *Parser) Run(data []byte) ([]Entry, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var entries []Entry
	var loc, lastmod string
	var field *string

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse sitemap: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "url":
				loc, lastmod = "", ""
				field = nil
			case "loc":
				field = &loc
			case "lastmod":
				field = &lastmod
			}
		case xml.CharData:
			if field != nil {
				*field += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "loc", "lastmod":
				field = nil
			case "url":
				if entry, ok := p.extract(loc, lastmod); ok {
					entries = append(entries, entry)
				}
			}
		}
	}

	return entries, nil
}

// extract normalizes one raw location into an entry, keeping only the
// product path suffix as the identifier.
func (p *Parser) extract(loc, lastmod string) (Entry, bool) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return Entry{}, false
	}

	identifier := p.pattern.FindString(loc)
	if identifier == "" {
		return Entry{}, false
	}

	entry := Entry{Identifier: identifier}
	if lastmod = strings.TrimSpace(lastmod); lastmod != "" {
		entry.LastModified = &lastmod
	}
	return entry, true
}
