package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kapu/chess-driller/internal/domain"
)

func TestMemrepoInsertAndRecent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id, err := repo.InsertResult(ctx, &domain.DrillResult{
			SessionUUID: string(rune('a' + i)),
			Color:       "white",
			Opening:     []string{"e4"},
			PliesDeep:   i + 1,
			Outcome:     "completed",
			StartedAt:   base,
			EndedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertResult %d: %v", i, err)
		}
		if id == 0 {
			t.Fatalf("expected non-zero id")
		}
	}

	results, err := repo.RecentResults(ctx, 2)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].EndedAt.After(results[1].EndedAt) {
		t.Fatalf("results not ordered most recent first")
	}
}

func TestMemrepoDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	result := &domain.DrillResult{SessionUUID: "dup", Outcome: "completed"}
	if _, err := repo.InsertResult(ctx, result); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := repo.InsertResult(ctx, result); !errors.Is(err, ErrDuplicateResult) {
		t.Fatalf("expected ErrDuplicateResult, got %v", err)
	}
}
