package parser

import (
	"bytes"
	"context"

	"github.com/memento-ai/mementod/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainTextParser handles .txt files: the whole body becomes a single unit,
// no images.
type PlainTextParser struct{}

func (p *PlainTextParser) Parse(_ context.Context, doc *domain.Document) (*Result, error) {
	text := string(bytes.TrimPrefix(doc.Content, utf8BOM))
	if len(bytes.TrimSpace([]byte(text))) == 0 {
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
