package provider

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field maps one named value to a locator inside a selection. Selector is
// an opaque CSS selector string; an empty Selector reads the selection
// itself. Attr reads an attribute instead of the text content.
type Field struct {
	Name     string
	Selector string
	Attr     string
	Optional bool
}

// FieldMap is the declarative extraction table for one page type.
type FieldMap struct {
	Page   string
	Fields []Field
}

// Fields holds the values located by a FieldMap.
type Fields struct {
	page   string
	values map[string]string
}

// Locate resolves every field against sel. A required field whose locator
// matches nothing yields an ExtractionError naming that field.
func (m FieldMap) Locate(sel *goquery.Selection) (Fields, error) {
	out := Fields{page: m.Page, values: make(map[string]string, len(m.Fields))}
	for _, f := range m.Fields {
		target := sel
		if f.Selector != "" {
			target = sel.Find(f.Selector)
		}
		if target.Length() == 0 {
			if f.Optional {
				continue
			}
			return Fields{}, Missing(m.Page, f.Name)
		}
		target = target.First()

		var v string
		if f.Attr != "" {
			attr, ok := target.Attr(f.Attr)
			if !ok {
				if f.Optional {
					continue
				}
				return Fields{}, Missing(m.Page, f.Name)
			}
			v = attr
		} else {
			v = CleanText(target.Text())
		}
		out.values[f.Name] = v
	}
	return out, nil
}

// Text returns the located value, or "" when an optional field was absent.
func (f Fields) Text(name string) string {
	return f.values[name]
}

// Has reports whether the field was located.
func (f Fields) Has(name string) bool {
	_, ok := f.values[name]
	return ok
}

// Int parses the located value as an integer. Absent or unparsable values
// yield nil.
func (f Fields) Int(name string) *int {
	return ParseOptionalInt(f.values[name])
}

// Page returns the page name the fields were located on.
func (f Fields) Page() string {
	return f.page
}

// CleanText trims and collapses inner whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CellTexts returns the cleaned text of every match of selector under sel.
func CellTexts(sel *goquery.Selection, selector string) []string {
	cells := sel.Find(selector)
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, CleanText(c.Text()))
	})
	return out
}
