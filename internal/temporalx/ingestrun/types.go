package ingestrun

const (
	WorkflowName        = "ingest-document"
	ActivityEmbedChunk  = "ingest-embed-chunk"
	ActivityUpsertChunk = "ingest-upsert-chunk"
)

// Input starts one document ingestion. ChunkSize <= 0 means the default.
type Input struct {
	DocID     string `json:"doc_id"`
	Text      string `json:"text"`
	ChunkSize int    `json:"chunk_size,omitempty"`
}

// UpsertInput carries one embedded chunk into the upsert step.
type UpsertInput struct {
	DocID     string    `json:"doc_id"`
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Result reports per-chunk outcomes. FailedChunks lists indices whose
// embed or upsert step exhausted its retries; the rest were ingested.
type Result struct {
	DocID        string `json:"doc_id"`
	Chunks       int    `json:"chunks"`
	FailedChunks []int  `json:"failed_chunks,omitempty"`
}
