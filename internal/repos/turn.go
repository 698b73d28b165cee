package repos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
)

// TurnRepo is the append-only conversation log. Appends never fail
// silently; a persistence error always reaches the caller.
type TurnRepo interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, sessionID, role, content string) (*types.ChatTurn, error)
	// Recent returns up to limit of the newest turns in ascending id order
	// (oldest of the window first). Each call re-derives the window from
	// persisted state.
	Recent(ctx context.Context, sessionID string, limit int) ([]types.ChatTurn, error)
	// RecentDesc returns the same window newest-first, as stored order for
	// the summarizer transcript.
	RecentDesc(ctx context.Context, sessionID string, limit int) ([]types.ChatTurn, error)
}

type turnRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTurnRepo(db *gorm.DB, log *logger.Logger) TurnRepo {
	return &turnRepo{
		db:  db,
		log: log.With("repo", "TurnRepo"),
	}
}

func (r *turnRepo) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("turn repo not configured")
	}
	return r.db.WithContext(ctx).AutoMigrate(&types.ChatTurn{})
}

func (r *turnRepo) Append(ctx context.Context, sessionID, role, content string) (*types.ChatTurn, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("turn repo not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("missing session id")
	}
	if role != types.RoleUser && role != types.RoleAssistant {
		return nil, fmt.Errorf("invalid turn role %q", role)
	}
	row := &types.ChatTurn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		TS:        time.Now().Unix(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	return row, nil
}

func (r *turnRepo) Recent(ctx context.Context, sessionID string, limit int) ([]types.ChatTurn, error) {
	rows, err := r.RecentDesc(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *turnRepo) RecentDesc(ctx context.Context, sessionID string, limit int) ([]types.ChatTurn, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("turn repo not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("missing session id")
	}
	if limit <= 0 {
		return nil, nil
	}
	var rows []types.ChatTurn
	err := r.db.WithContext(ctx).
		Model(&types.ChatTurn{}).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	return rows, nil
}
