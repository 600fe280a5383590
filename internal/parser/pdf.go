package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/memento-ai/mementod/internal/domain"
)

// PDFParser extracts per-page text and embedded raster images. Text comes
// from docconv, which preserves pdftotext's form-feed page separators.
// Images are found by walking the file's indirect objects for image
// XObjects; JPEG (DCTDecode) streams are carried verbatim. Page attribution
// follows the object references in each page dictionary.
type PDFParser struct{}

func (p *PDFParser) Parse(_ context.Context, doc *domain.Document) (*Result, error) {
	if !bytes.HasPrefix(doc.Content, pdfMagic) {
		return nil, domain.NewParseError(errors.New("missing %PDF header"))
	}

	text, err := convertText(doc.Content, domain.FormatPDF.MIMEType())
	if err != nil {
		return nil, domain.NewParseError(err)
	}

	result := &Result{}
	for i, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		result.Units = append(result.Units, domain.ExtractedUnit{
			FileID:   doc.FileID,
			TenantID: doc.TenantID,
			Text:     page,
			Position: i,
		})
	}

	result.Images = extractPDFImages(doc)
	return result, nil
}

var pdfMagic = []byte("%PDF-")

var objStartRe = regexp.MustCompile(`(\d+)\s+\d+\s+obj`)

type pdfObject struct {
	num  int
	dict []byte
	body []byte
}

// extractPDFImages walks indirect objects, collects DCTDecode image
// XObjects, and attributes each to the page whose dictionary references it.
// Images on pages with indirect resource dictionaries fall back to page -1;
// dedup and description still apply to them.
func extractPDFImages(doc *domain.Document) []domain.ExtractedImage {
	objects := scanPDFObjects(doc.Content)

	var pages []pdfObject
	var images []pdfObject
	for _, obj := range objects {
		switch {
		case isPDFPage(obj.dict):
			pages = append(pages, obj)
		case isPDFImage(obj.dict):
			images = append(images, obj)
		}
	}

	var extracted []domain.ExtractedImage
	orderByPage := make(map[int]int)
	for _, img := range images {
		stream := pdfStreamPayload(img.body)
		if len(stream) == 0 {
			continue
		}

		page := -1
		ref := []byte(fmt.Sprintf("%d 0 R", img.num))
		for i, p := range pages {
			if containsPDFRef(p.body, ref) {
				page = i
				break
			}
		}

		order := orderByPage[page]
		orderByPage[page] = order + 1

		extracted = append(extracted, domain.ExtractedImage{
			FileID:    doc.FileID,
			TenantID:  doc.TenantID,
			Data:      stream,
			Format:    sniffImageFormat(stream),
			Positions: []domain.ImagePosition{{Page: page, Order: order}},
		})
	}
	return extracted
}

func scanPDFObjects(data []byte) []pdfObject {
	var objects []pdfObject
	for _, loc := range objStartRe.FindAllSubmatchIndex(data, -1) {
		num, err := strconv.Atoi(string(data[loc[2]:loc[3]]))
		if err != nil {
			continue
		}
		start := loc[1]
		end := bytes.Index(data[start:], []byte("endobj"))
		if end < 0 {
			continue
		}
		body := data[start : start+end]

		dict := body
		if i := indexPDFStream(body); i >= 0 {
			dict = body[:i]
		}
		objects = append(objects, pdfObject{num: num, dict: dict, body: body})
	}
	return objects
}

func isPDFPage(dict []byte) bool {
	return bytes.Contains(dict, []byte("/Type")) &&
		bytes.Contains(dict, []byte("/Page")) &&
		!bytes.Contains(dict, []byte("/Pages"))
}

func isPDFImage(dict []byte) bool {
	return bytes.Contains(dict, []byte("/Subtype")) &&
		bytes.Contains(dict, []byte("/Image")) &&
		bytes.Contains(dict, []byte("/DCTDecode"))
}

// indexPDFStream finds the "stream" keyword that opens the object's data,
// skipping matches inside "endstream".
func indexPDFStream(body []byte) int {
	offset := 0
	for {
		i := bytes.Index(body[offset:], []byte("stream"))
		if i < 0 {
			return -1
		}
		i += offset
		if i > 0 && body[i-1] == 'd' { // part of "endstream"
			offset = i + len("stream")
			continue
		}
		return i
	}
}

// pdfStreamPayload returns the raw bytes between an object's stream and
// endstream keywords, with the surrounding EOL markers stripped.
func pdfStreamPayload(body []byte) []byte {
	start := indexPDFStream(body)
	if start < 0 {
		return nil
	}
	start += len("stream")
	if start < len(body) && body[start] == '\r' {
		start++
	}
	if start < len(body) && body[start] == '\n' {
		start++
	}

	end := bytes.Index(body[start:], []byte("endstream"))
	if end < 0 {
		return nil
	}
	payload := body[start : start+end]
	payload = bytes.TrimRight(payload, "\r\n")
	return payload
}

// containsPDFRef reports whether body references the object, requiring a
// non-digit boundary so "12 0 R" does not match "112 0 R".
func containsPDFRef(body, ref []byte) bool {
	offset := 0
	for {
		i := bytes.Index(body[offset:], ref)
		if i < 0 {
			return false
		}
		i += offset
		if i == 0 || !isDigit(body[i-1]) {
			return true
		}
		offset = i + len(ref)
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
