package repos

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
)

func newTestRepo(t *testing.T) TurnRepo {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	path := filepath.Join(t.TempDir(), "turns.db")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := NewTurnRepo(gdb, log)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return repo
}

func TestTurnRepo_AppendAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)

	turn, err := repo.Append(context.Background(), "s1", types.RoleUser, "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if turn.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if turn.TS == 0 {
		t.Fatalf("expected timestamp")
	}

	second, err := repo.Append(context.Background(), "s1", types.RoleAssistant, "hi")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second.ID <= turn.ID {
		t.Fatalf("ids must be monotonic: %d then %d", turn.ID, second.ID)
	}
}

func TestTurnRepo_RejectsInvalidInput(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.Append(context.Background(), "", types.RoleUser, "x"); err == nil {
		t.Fatalf("expected error for missing session id")
	}
	if _, err := repo.Append(context.Background(), "s1", "narrator", "x"); err == nil {
		t.Fatalf("expected error for invalid role")
	}
	if _, err := repo.Append(context.Background(), "s1", types.RoleSystem, "x"); err == nil {
		t.Fatalf("system turns are never persisted")
	}
}

func TestTurnRepo_RecentWindowAscending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		if _, err := repo.Append(ctx, "s1", role, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rows, err := repo.Recent(ctx, "s1", 12)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	// The newest 20-8=12 turns, oldest of the window first.
	if rows[0].Content != "m8" || rows[11].Content != "m19" {
		t.Fatalf("unexpected window bounds: %q .. %q", rows[0].Content, rows[11].Content)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].ID <= rows[i-1].ID {
			t.Fatalf("rows not ascending at %d", i)
		}
	}
}

func TestTurnRepo_RecentDescNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.Append(ctx, "s1", types.RoleUser, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rows, err := repo.RecentDesc(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("recent desc: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Content != "m4" || rows[2].Content != "m2" {
		t.Fatalf("unexpected order: %q .. %q", rows[0].Content, rows[2].Content)
	}
}

func TestTurnRepo_SessionsAreIsolated(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Append(ctx, "s1", types.RoleUser, "one"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := repo.Append(ctx, "s2", types.RoleUser, "two"); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows, err := repo.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 1 || rows[0].Content != "one" {
		t.Fatalf("unexpected rows for s1: %+v", rows)
	}

	rows, err = repo.Recent(ctx, "missing", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows for unknown session, got %+v", rows)
	}
}

func TestTurnRepo_EnsureSchemaIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Append(ctx, "s1", types.RoleUser, "kept"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	rows, err := repo.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 1 || rows[0].Content != "kept" {
		t.Fatalf("migration must not drop data, got %+v", rows)
	}
}
