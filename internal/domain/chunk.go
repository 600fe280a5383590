package domain

import "time"

// Chunk is a bounded span of the document's logical text stream, the unit
// stored and retrieved by the vector index. Chunk order within a document is
// stable and monotonic in Index.
type Chunk struct {
	ID        string
	TenantID  string
	FileID    string
	FileName  string
	Index     int
	Content   string
	Embedding []float32
	// PageStart/PageEnd bound the pages the chunk's text was drawn
	// from; -1 when the source format has no pages.
	PageStart int
	PageEnd   int
	CreatedAt time.Time
}

// SearchResult is one ranked chunk returned by a tenant-scoped query.
type SearchResult struct {
	ChunkID    string
	FileID     string
	FileName   string
	ChunkIndex int
	Content    string
	Score      float64
}
