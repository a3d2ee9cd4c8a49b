package evidence

import (
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrMalformedDocument is returned when a document has no parse tree to query.
var ErrMalformedDocument = errors.New("malformed document")

// Document is the parsed HTML of a fetched page.
type Document struct {
	doc *goquery.Document
}

var emptyDocument = mustEmptyDocument()

func mustEmptyDocument() *Document {
	d, err := ParseDocument(strings.NewReader(""))
	if err != nil {
		panic("evidence: cannot build empty document: " + err.Error())
	}
	return d
}

// EmptyDocument returns the shared document used when no page was fetched.
// It is read-only.
func EmptyDocument() *Document {
	return emptyDocument
}

// ParseDocument builds a Document from HTML.
func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// Find runs a CSS selector over the document.
func (d *Document) Find(selector string) (*goquery.Selection, error) {
	if d == nil || d.doc == nil {
		return nil, ErrMalformedDocument
	}
	return d.doc.Find(selector), nil
}
