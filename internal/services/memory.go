package services

import (
	"context"
	"strings"

	"github.com/recallhq/recall/internal/clients/openai"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
	"github.com/recallhq/recall/internal/vector"
)

// MemorySeparator joins recalled snippets when they are rendered into a
// single grounding note.
const MemorySeparator = "\n---\n"

// MemoryService recalls semantically related snippets for a query.
// Retrieval is strictly best-effort: this is the one boundary where
// embedding or index failures are converted to an empty result, so a
// broken memory path can never abort the enclosing turn.
type MemoryService struct {
	log   *logger.Logger
	ai    openai.Client
	store vector.Store
}

func NewMemoryService(log *logger.Logger, ai openai.Client, store vector.Store) *MemoryService {
	return &MemoryService{
		log:   log.With("service", "MemoryService"),
		ai:    ai,
		store: store,
	}
}

// Retrieve returns up to k snippets ordered by descending relevance, or
// nothing when anything in the retrieval path fails.
func (s *MemoryService) Retrieve(ctx context.Context, queryText string, k int) []types.MemorySnippet {
	if s == nil || s.ai == nil || s.store == nil {
		return nil
	}
	if queryText == "" || k <= 0 {
		return nil
	}

	vecs, err := s.ai.Embed(ctx, []string{queryText})
	if err != nil {
		s.log.Warn("Memory retrieval degraded: embedding failed", "error", err)
		return nil
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		s.log.Warn("Memory retrieval degraded: empty query embedding")
		return nil
	}

	snippets, err := s.store.Query(ctx, vecs[0], k)
	if err != nil {
		s.log.Warn("Memory retrieval degraded: vector query failed", "error", err)
		return nil
	}
	return snippets
}

// JoinSnippets renders snippets as one grounding note.
func JoinSnippets(snippets []types.MemorySnippet) string {
	parts := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		if sn.Text == "" {
			continue
		}
		parts = append(parts, sn.Text)
	}
	return strings.Join(parts, MemorySeparator)
}
