package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/memento-ai/mementod/internal/domain"
)

// DOCXParser walks the OOXML document tree in document order: paragraph and
// table-cell text from word/document.xml, embedded images from word/media.
// DOCX has no page structure, so units are positioned by paragraph index
// and images carry page -1 with their media order.
type DOCXParser struct{}

func (p *DOCXParser) Parse(_ context.Context, doc *domain.Document) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, domain.NewParseError(err)
	}

	body, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return nil, domain.NewParseError(err)
	}

	paragraphs, err := extractXMLParagraphs(bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewParseError(err)
	}

	result := &Result{}
	for i, text := range paragraphs {
		result.Units = append(result.Units, domain.ExtractedUnit{
			FileID:   doc.FileID,
			TenantID: doc.TenantID,
			Text:     text,
			Position: i,
		})
	}

	for i, name := range sortedZipNames(zr, "word/media/") {
		data, err := readZipFile(zr, name)
		if err != nil || len(data) == 0 {
			continue
		}
		result.Images = append(result.Images, domain.ExtractedImage{
			FileID:    doc.FileID,
			TenantID:  doc.TenantID,
			Data:      data,
			Format:    sniffImageFormat(data),
			Positions: []domain.ImagePosition{{Page: -1, Order: i}},
		})
	}

	return result, nil
}

// PPTXParser extracts one text unit per slide, in slide order, and embedded
// images from ppt/media. Each slide's relationship part attributes media to
// its slide index; unreferenced media fall back to page -1.
type PPTXParser struct{}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (p *PPTXParser) Parse(_ context.Context, doc *domain.Document) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, domain.NewParseError(err)
	}

	slides := slideFiles(zr)
	if len(slides) == 0 && len(sortedZipNames(zr, "ppt/media/")) == 0 {
		return &Result{}, nil
	}

	result := &Result{}
	mediaPositions := make(map[string][]domain.ImagePosition)

	for slideIdx, name := range slides {
		body, err := readZipFile(zr, name)
		if err != nil {
			return nil, domain.NewParseError(err)
		}
		paragraphs, err := extractXMLParagraphs(bytes.NewReader(body))
		if err != nil {
			return nil, domain.NewParseError(err)
		}
		if text := strings.TrimSpace(strings.Join(paragraphs, "\n")); text != "" {
			result.Units = append(result.Units, domain.ExtractedUnit{
				FileID:   doc.FileID,
				TenantID: doc.TenantID,
				Text:     text,
				Position: slideIdx,
			})
		}

		for order, media := range slideMediaTargets(zr, name) {
			mediaPositions[media] = append(mediaPositions[media], domain.ImagePosition{
				Page:  slideIdx,
				Order: order,
			})
		}
	}

	for i, name := range sortedZipNames(zr, "ppt/media/") {
		data, err := readZipFile(zr, name)
		if err != nil || len(data) == 0 {
			continue
		}
		positions := mediaPositions[name]
		if len(positions) == 0 {
			positions = []domain.ImagePosition{{Page: -1, Order: i}}
		}
		// One occurrence per referencing slide; dedup collapses them
		// into a single record carrying every position.
		for _, pos := range positions {
			result.Images = append(result.Images, domain.ExtractedImage{
				FileID:    doc.FileID,
				TenantID:  doc.TenantID,
				Data:      data,
				Format:    sniffImageFormat(data),
				Positions: []domain.ImagePosition{pos},
			})
		}
	}

	return result, nil
}

func slideFiles(zr *zip.Reader) []string {
	type slide struct {
		name string
		num  int
	}
	var slides []slide
	for _, f := range zr.File {
		m := slideNameRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{name: f.Name, num: n})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	names := make([]string, len(slides))
	for i, s := range slides {
		names[i] = s.name
	}
	return names
}

// slideMediaTargets resolves a slide's relationship part to the media
// entries it references, in appearance order.
func slideMediaTargets(zr *zip.Reader, slideName string) []string {
	base := strings.TrimPrefix(slideName, "ppt/slides/")
	relsName := "ppt/slides/_rels/" + base + ".rels"

	body, err := readZipFile(zr, relsName)
	if err != nil {
		return nil
	}

	var rels struct {
		Relationships []struct {
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(body, &rels); err != nil {
		return nil
	}

	var targets []string
	for _, rel := range rels.Relationships {
		if !strings.Contains(rel.Target, "media/") {
			continue
		}
		targets = append(targets, "ppt/"+strings.TrimPrefix(rel.Target, "../"))
	}
	return targets
}

// extractXMLParagraphs walks an OOXML part collecting the text runs of each
// paragraph element. WordprocessingML (w:p/w:t) and DrawingML (a:p/a:t)
// share the local names, so the walk serves both DOCX and PPTX parts.
func extractXMLParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var paragraphs []string
	var buf strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				buf.Reset()
			case "t":
				inText = inParagraph
			case "br":
				if inParagraph {
					buf.WriteString("\n")
				}
			case "tab":
				if inParagraph {
					buf.WriteString("\t")
				}
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					if text := strings.TrimSpace(buf.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
				inParagraph = false
			}
		}
	}
	return paragraphs, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errors.New(name + " not found in archive")
}

func sortedZipNames(zr *zip.Reader, prefix string) []string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}
