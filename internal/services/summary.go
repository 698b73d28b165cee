package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/repos"
	"github.com/recallhq/recall/internal/types"
)

const (
	// SummaryWindow is how many of the latest turns feed a summary.
	SummaryWindow = 50

	summaryPrompt = "Summarize briefly in bullet points."
)

// SummaryService produces on-demand digests of a session's recent
// conversation. Summaries are derived, never stored, so a failure here
// cannot corrupt session state.
type SummaryService struct {
	log   *logger.Logger
	turns repos.TurnRepo
	gen   Generator
}

func NewSummaryService(log *logger.Logger, turns repos.TurnRepo, gen Generator) *SummaryService {
	return &SummaryService{
		log:   log.With("service", "SummaryService"),
		turns: turns,
		gen:   gen,
	}
}

// Summarize renders the latest turns as "role: content" lines, most
// recent first, and asks the model for a bullet point digest. A session
// with no logged turns yields an empty summary without a model call.
// The read assumes the turn table from the startup migration; unlike
// the chat path, no schema ensure happens here.
func (s *SummaryService) Summarize(ctx context.Context, sessionID string) (string, error) {
	turns, err := s.turns.RecentDesc(ctx, sessionID, SummaryWindow)
	if err != nil {
		return "", fmt.Errorf("load turns for summary: %w", err)
	}
	if len(turns) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role+": "+t.Content)
	}
	transcript := strings.Join(lines, "\n")

	messages := []types.Message{
		{Role: types.RoleSystem, Content: summaryPrompt},
		{Role: types.RoleUser, Content: transcript},
	}
	summary, err := s.gen.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return summary, nil
}
