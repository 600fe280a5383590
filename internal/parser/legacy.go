package parser

import (
	"bytes"
	"context"
	"strings"

	"code.sajari.com/docconv"

	"github.com/memento-ai/mementod/internal/domain"
)

// DocconvParser handles legacy text-only word-processor formats (.doc,
// .rtf) through docconv. These formats produce text units only; no image
// extraction is attempted.
type DocconvParser struct {
	format domain.FileFormat
}

func NewDocconvParser(format domain.FileFormat) *DocconvParser {
	return &DocconvParser{format: format}
}

func (p *DocconvParser) Parse(_ context.Context, doc *domain.Document) (*Result, error) {
	text, err := convertText(doc.Content, p.format.MIMEType())
	if err != nil {
		return nil, domain.NewParseError(err)
	}
	if strings.TrimSpace(text) == "" {
		return &Result{}, nil
	}

	return &Result{
		Units: []domain.ExtractedUnit{{
			FileID:   doc.FileID,
			TenantID: doc.TenantID,
			Text:     text,
			Position: 0,
		}},
	}, nil
}

// convertText runs docconv on in-memory content with a MIME type hint.
func convertText(content []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(content), mimeType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}
