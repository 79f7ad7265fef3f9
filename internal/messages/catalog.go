// Package messages maps raw directory failure signatures to stable,
// user-facing messages via an XML catalog.
//
// The catalog format is a flat list of indexed messages:
//
//	<messages>
//	    <message index="(0x80072030)">User not found.</message>
//	    <message index="timeout">Authentication server is not responding.</message>
//	</messages>
//
// Lookup is substring matching of catalog indices against the raw
// failure text; document order decides precedence, first match wins.
package messages

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Catalog is an ordered error-message lookup table. It is read-only
// after construction and safe for concurrent use.
type Catalog struct {
	entries []entry
}

type entry struct {
	index   string
	message string
}

type xmlCatalog struct {
	XMLName  xml.Name     `xml:"messages"`
	Messages []xmlMessage `xml:"message"`
}

type xmlMessage struct {
	Index string `xml:"index,attr"`
	Text  string `xml:",chardata"`
}

// Load reads a catalog from the XML file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a catalog from XML. Entries with an empty index are
// rejected: an empty index would match every signature.
func Parse(r io.Reader) (*Catalog, error) {
	var doc xmlCatalog
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse message catalog: %w", err)
	}

	c := &Catalog{entries: make([]entry, 0, len(doc.Messages))}
	for _, m := range doc.Messages {
		if m.Index == "" {
			return nil, fmt.Errorf("message catalog entry with empty index")
		}
		c.entries = append(c.entries, entry{
			index:   m.Index,
			message: strings.TrimSpace(m.Text),
		})
	}
	return c, nil
}

// Empty returns a catalog with no entries; Translate passes signatures
// through unchanged.
func Empty() *Catalog {
	return &Catalog{}
}

// Translate returns the message of the first catalog entry whose index
// occurs in raw, or raw itself when nothing matches. Translation never
// influences control flow; callers decide verdicts from structured
// errors before consulting the catalog.
func (c *Catalog) Translate(raw string) string {
	for _, e := range c.entries {
		if strings.Contains(raw, e.index) {
			return e.message
		}
	}
	return raw
}

// Len reports the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
