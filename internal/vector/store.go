package vector

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/recallhq/recall/internal/clients/pinecone"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
)

// Store is the vector index as the pipeline sees it: upsert by
// deterministic id, nearest-neighbor query returning snippet metadata.
type Store interface {
	Upsert(ctx context.Context, records []types.VectorRecord) error
	// Query returns up to topK snippets ordered by descending score as
	// reported by the index. Matches without text metadata are dropped.
	Query(ctx context.Context, embedding []float32, topK int) ([]types.MemorySnippet, error)
	// Dimension is the index dimensionality, or 0 when unknown.
	Dimension() int
}

type store struct {
	log       *logger.Logger
	pc        pinecone.Client
	indexName string
	indexHost string
	namespace string
	dimension int
}

func NewStore(log *logger.Logger, pc pinecone.Client) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))
	namespace := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE"))
	if namespace == "" {
		namespace = "recall"
	}

	dimension := 0
	// If host missing, bootstrap via describe_index (fine for local/dev;
	// avoid in prod). The described dimension also lets us reject records
	// whose embedding length would not match query-time vectors.
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone describe_index returned empty host")
		}
		dimension = desc.Dimension
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &store{
		log:       log.With("service", "PineconeStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		namespace: namespace,
		dimension: dimension,
	}, nil
}

func (s *store) Dimension() int {
	if s == nil {
		return 0
	}
	return s.dimension
}

func (s *store) Upsert(ctx context.Context, records []types.VectorRecord) error {
	if s == nil || s.pc == nil {
		return fmt.Errorf("vector store unavailable")
	}
	if len(records) == 0 {
		return nil
	}
	vectors := make([]pinecone.Vector, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("vector record missing id")
		}
		if s.dimension > 0 && len(r.Embedding) != s.dimension {
			return fmt.Errorf("vector record %s has dimension %d, index expects %d", r.ID, len(r.Embedding), s.dimension)
		}
		vectors = append(vectors, pinecone.Vector{
			ID:       r.ID,
			Values:   r.Embedding,
			Metadata: r.Metadata,
		})
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, pinecone.UpsertRequest{
		Namespace: s.namespace,
		Vectors:   vectors,
	})
	return err
}

func (s *store) Query(ctx context.Context, embedding []float32, topK int) ([]types.MemorySnippet, error) {
	if s == nil || s.pc == nil {
		return nil, fmt.Errorf("vector store unavailable")
	}
	resp, err := s.pc.Query(ctx, s.indexHost, pinecone.QueryRequest{
		Namespace:       s.namespace,
		Vector:          embedding,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.MemorySnippet, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		text, _ := m.Metadata["text"].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, types.MemorySnippet{
			Text:     text,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return out, nil
}
