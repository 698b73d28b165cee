package types

import "fmt"

// Document is the ingestion input. It is not persisted as-is; only its
// chunks live on, as vector records.
type Document struct {
	ID   string `json:"doc_id"`
	Text string `json:"text"`
}

// Chunk is a bounded contiguous slice of a document. Concatenating all
// chunks of a doc_id in index order reconstructs the document exactly.
type Chunk struct {
	DocID string `json:"doc_id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// RecordID is the vector record id for this chunk. It is deterministic,
// so re-ingesting the same chunk overwrites instead of duplicating.
func (c Chunk) RecordID() string {
	return fmt.Sprintf("%s:%d", c.DocID, c.Index)
}

// VectorRecord is one embedded chunk as stored in the vector index.
type VectorRecord struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
