// Package parser extracts text and embedded images from supported document
// formats. Each format is handled by its own Parser variant; the Registry
// selects the variant for a detected format, so new formats are added by
// registering a parser rather than editing a dispatch site.
package parser

import (
	"bytes"
	"context"

	"github.com/memento-ai/mementod/internal/domain"
)

// Result holds everything a parser extracted from one document: text units
// in document order and image occurrences with positional metadata.
type Result struct {
	Units  []domain.ExtractedUnit
	Images []domain.ExtractedImage
}

// Parser extracts content from one document format.
type Parser interface {
	Parse(ctx context.Context, doc *domain.Document) (*Result, error)
}

// Registry maps detected formats to their parser variant.
type Registry struct {
	parsers map[domain.FileFormat]Parser
}

// NewRegistry builds a registry with all built-in parsers registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[domain.FileFormat]Parser)}
	r.Register(domain.FormatTXT, &PlainTextParser{})
	r.Register(domain.FormatPDF, &PDFParser{})
	r.Register(domain.FormatDOCX, &DOCXParser{})
	r.Register(domain.FormatPPTX, &PPTXParser{})
	r.Register(domain.FormatDOC, NewDocconvParser(domain.FormatDOC))
	r.Register(domain.FormatRTF, NewDocconvParser(domain.FormatRTF))
	return r
}

// Register adds or replaces the parser for a format.
func (r *Registry) Register(format domain.FileFormat, p Parser) {
	r.parsers[format] = p
}

// ForFormat returns the parser for a format, or ErrUnsupportedFormat.
func (r *Registry) ForFormat(format domain.FileFormat) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, domain.ErrUnsupportedFormat
	}
	return p, nil
}

// Parse detects the document's parser by its recorded format and runs it.
func (r *Registry) Parse(ctx context.Context, doc *domain.Document) (*Result, error) {
	p, err := r.ForFormat(doc.Format)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, doc)
}

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	gifMagic  = []byte("GIF8")
)

// sniffImageFormat classifies raw image bytes by magic number, defaulting
// to png for anything unrecognized.
func sniffImageFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return "jpg"
	case bytes.HasPrefix(data, pngMagic):
		return "png"
	case bytes.HasPrefix(data, gifMagic):
		return "gif"
	default:
		return "png"
	}
}
