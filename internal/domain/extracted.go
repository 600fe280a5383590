package domain

// ExtractedUnit is one text segment produced by a parser. Units are created
// in document order and never mutated afterwards.
type ExtractedUnit struct {
	FileID   string
	TenantID string
	Text     string
	// Position is the page (PDF), slide (PPTX) or block index the text
	// came from, 0-based.
	Position int
	// ImageIDs lists the content hashes of images that appear within
	// this unit's page or slide.
	ImageIDs []string
}

// ImagePosition records where an image occurrence was found.
type ImagePosition struct {
	// Page is the 0-based page or slide index; -1 when the format has
	// no page structure.
	Page int
	// Order is the draw/appearance order within the page.
	Order int
}

// ExtractedImage is one embedded raster image. The ID is the SHA-256 of the
// image bytes, so byte-identical occurrences collapse into a single record
// carrying every position they were seen at. The record is mutated exactly
// twice after extraction: once by the storage upload (URL) and once by the
// describer (Description).
type ExtractedImage struct {
	ID        string
	FileID    string
	TenantID  string
	Data      []byte
	Format    string // jpg, png, gif
	Positions []ImagePosition

	URL         string
	Description string
}

// FirstPosition returns the earliest occurrence, by page then order.
func (img *ExtractedImage) FirstPosition() ImagePosition {
	if len(img.Positions) == 0 {
		return ImagePosition{Page: -1}
	}
	first := img.Positions[0]
	for _, p := range img.Positions[1:] {
		if p.Page < first.Page || (p.Page == first.Page && p.Order < first.Order) {
			first = p
		}
	}
	return first
}
