package feeds

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"
)

// xmlDoc is a parsed feed. A document that was cut off or broke part way
// keeps the elements read before the failure: readErr holds the failure and
// open the elements whose end tag never arrived.
type xmlDoc struct {
	*etree.Document
	readErr error
	open    map[*etree.Element]bool
}

// complete reports whether el was read up to its end tag.
func (d *xmlDoc) complete(el *etree.Element) bool {
	return !d.open[el]
}

// parseXML reads a feed document. Legacy Turkish encodings declared in the
// prolog (ISO-8859-9, windows-1254) are decoded transparently. An error is
// returned only when not even the root element could be read.
func parseXML(content string) (*xmlDoc, error) {
	content = strings.TrimSpace(trimBOM(content))
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	doc.ReadSettings.Permissive = true
	readErr := doc.ReadFromString(content)
	if doc.Root() == nil {
		if readErr != nil {
			return nil, fmt.Errorf("parse xml: %w", readErr)
		}
		return nil, errors.New("parse xml: no root element")
	}

	d := &xmlDoc{Document: doc}
	if readErr != nil {
		d.readErr = fmt.Errorf("parse xml: %w", readErr)
		d.open = openElements(doc, content)
	}
	return d, nil
}

// openElements replays the token stream etree consumed and returns the
// elements still open where reading stopped. Those form the chain of last
// child elements starting at the root.
func openElements(doc *etree.Document, content string) map[*etree.Element]bool {
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var names []xml.Name
scan:
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			names = append(names, t.Name)
		case xml.EndElement:
			if len(names) == 0 || names[len(names)-1] != t.Name {
				break scan
			}
			names = names[:len(names)-1]
		}
	}

	open := make(map[*etree.Element]bool, len(names))
	el := doc.Root()
	for range names {
		if el == nil {
			break
		}
		open[el] = true
		kids := el.ChildElements()
		if len(kids) == 0 {
			break
		}
		el = kids[len(kids)-1]
	}
	return open
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

func looksLikeXML(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(trimBOM(content)), "<")
}

// child returns the first child element matching any of names, trying names
// in order. Tag comparison goes through fieldKey.
func child(el *etree.Element, names ...string) *etree.Element {
	if el == nil {
		return nil
	}
	children := el.ChildElements()
	for _, name := range names {
		want := fieldKey(name)
		for _, c := range children {
			if fieldKey(c.Tag) == want {
				return c
			}
		}
	}
	return nil
}

func children(el *etree.Element, name string) []*etree.Element {
	if el == nil {
		return nil
	}
	want := fieldKey(name)
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if fieldKey(c.Tag) == want {
			out = append(out, c)
		}
	}
	return out
}

// valueText reads an element's scalar value: its own text, or a labeled
// value child or attribute when the text is empty.
func valueText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	if s := strings.TrimSpace(el.Text()); s != "" {
		return s
	}
	if v := child(el, "value", "deger", "amount", "miktar", "tutar"); v != nil {
		if s := strings.TrimSpace(v.Text()); s != "" {
			return s
		}
	}
	return attr(el, "value", "deger", "amount")
}

// childText returns the first non-empty value among the named children.
func childText(el *etree.Element, names ...string) string {
	if el == nil {
		return ""
	}
	children := el.ChildElements()
	for _, name := range names {
		want := fieldKey(name)
		for _, c := range children {
			if fieldKey(c.Tag) != want {
				continue
			}
			if s := valueText(c); s != "" {
				return s
			}
		}
	}
	return ""
}

func attr(el *etree.Element, names ...string) string {
	if el == nil {
		return ""
	}
	for _, name := range names {
		want := fieldKey(name)
		for _, a := range el.Attr {
			if fieldKey(a.Key) == want {
				if s := strings.TrimSpace(a.Value); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// findPath walks a slash-separated path of tag names from the document node.
func findPath(doc *etree.Document, path string) []*etree.Element {
	current := []*etree.Element{&doc.Element}
	for _, segment := range strings.Split(path, "/") {
		var next []*etree.Element
		for _, el := range current {
			next = append(next, children(el, segment)...)
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// elementMap converts an element into a JSON-friendly map for the raw bag.
func elementMap(el *etree.Element) map[string]any {
	out := make(map[string]any)
	for _, a := range el.Attr {
		out["@"+a.Key] = a.Value
	}
	for _, c := range el.ChildElements() {
		var v any
		if len(c.ChildElements()) == 0 && len(c.Attr) == 0 {
			v = strings.TrimSpace(c.Text())
		} else {
			v = elementMap(c)
		}
		switch existing := out[c.Tag].(type) {
		case nil:
			out[c.Tag] = v
		case []any:
			out[c.Tag] = append(existing, v)
		default:
			out[c.Tag] = []any{existing, v}
		}
	}
	if len(el.ChildElements()) == 0 {
		if s := strings.TrimSpace(el.Text()); s != "" {
			out["#text"] = s
		}
	}
	return out
}
