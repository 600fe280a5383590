package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/memento-ai/mementod/internal/domain"
)

// ChunkConfig controls the sliding window applied to the assembled text
// stream. The window advances by MaxChars-Overlap runes so consecutive
// chunks share an Overlap-sized tail; concatenating each chunk's first
// MaxChars-Overlap runes (plus the last chunk's remainder) reproduces the
// stream exactly.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides the pipeline defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 2000,
		Overlap:  400,
	}
}

// validate normalizes a config so the window always advances.
func (c ChunkConfig) validate() ChunkConfig {
	if c.MaxChars <= 0 {
		c = DefaultChunkConfig()
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap >= c.MaxChars {
		c.Overlap = c.MaxChars / 2
	}
	return c
}

// chunkText splits text into fixed-size rune windows. Unlike prose-oriented
// chunkers there is no snapping to whitespace: window boundaries are exact
// so the original stream is reconstructible from the chunks.
func chunkText(text string, cfg ChunkConfig) []string {
	if text == "" {
		return nil
	}
	cfg = cfg.validate()

	runes := []rune(text)
	if len(runes) <= cfg.MaxChars {
		return []string{text}
	}

	step := cfg.MaxChars - cfg.Overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// streamSegment is one contiguous piece of the assembled text stream,
// tagged with the page it came from (-1 when the source has no pages).
type streamSegment struct {
	text string
	page int
}

// buildStream assembles extracted units and image descriptions into one
// text stream. Units keep their extraction order. Each described image is
// inserted as an "[Image: ...]" marker after the last unit of its first
// page; images without a page, or whose page produced no text, go at the
// end. Images with no description are dropped from the stream (they remain
// persisted with their URL).
func buildStream(units []domain.ExtractedUnit, images []*domain.ExtractedImage) []streamSegment {
	markersByPage := make(map[int][]string)
	var trailing []string
	for _, img := range images {
		if img.Description == "" {
			continue
		}
		marker := fmt.Sprintf("[Image: %s]", img.Description)
		pos := img.FirstPosition()
		if pos.Page < 0 {
			trailing = append(trailing, marker)
			continue
		}
		markersByPage[pos.Page] = append(markersByPage[pos.Page], marker)
	}

	var segments []streamSegment
	for i, unit := range units {
		if unit.Text == "" {
			continue
		}
		segments = append(segments, streamSegment{text: unit.Text, page: unit.Position})

		last := i == len(units)-1 || units[i+1].Position != unit.Position
		if !last {
			continue
		}
		for _, marker := range markersByPage[unit.Position] {
			segments = append(segments, streamSegment{text: marker, page: unit.Position})
		}
		delete(markersByPage, unit.Position)
	}

	// Markers whose page produced no unit still land in the stream, in
	// page order, ahead of the page-less tail.
	orphanPages := make([]int, 0, len(markersByPage))
	for page := range markersByPage {
		orphanPages = append(orphanPages, page)
	}
	sort.Ints(orphanPages)
	for _, page := range orphanPages {
		for _, marker := range markersByPage[page] {
			segments = append(segments, streamSegment{text: marker, page: page})
		}
	}
	for _, marker := range trailing {
		segments = append(segments, streamSegment{text: marker, page: -1})
	}
	return segments
}

// assembleChunks joins the stream with double newlines, chunks it, and
// attributes a page range to each chunk from the segments its window
// overlaps.
func assembleChunks(segments []streamSegment, cfg ChunkConfig) []domain.Chunk {
	if len(segments) == 0 {
		return nil
	}
	cfg = cfg.validate()

	var sb strings.Builder
	type span struct {
		start, end int // rune offsets into the stream
		page       int
	}
	spans := make([]span, 0, len(segments))
	offset := 0
	for i, seg := range segments {
		if i > 0 {
			sb.WriteString("\n\n")
			offset += 2
		}
		n := len([]rune(seg.text))
		spans = append(spans, span{start: offset, end: offset + n, page: seg.page})
		sb.WriteString(seg.text)
		offset += n
	}

	texts := chunkText(sb.String(), cfg)
	step := cfg.MaxChars - cfg.Overlap

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		winStart := i * step
		winEnd := winStart + len([]rune(text))

		pageStart, pageEnd := -1, -1
		for _, sp := range spans {
			if sp.end <= winStart || sp.start >= winEnd || sp.page < 0 {
				continue
			}
			if pageStart < 0 || sp.page < pageStart {
				pageStart = sp.page
			}
			if sp.page > pageEnd {
				pageEnd = sp.page
			}
		}

		chunks = append(chunks, domain.Chunk{
			Index:     i,
			Content:   text,
			PageStart: pageStart,
			PageEnd:   pageEnd,
		})
	}
	return chunks
}
