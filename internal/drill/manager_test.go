package drill

import (
	"context"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/kapu/chess-driller/internal/history"
)

func TestManagerRecordsCompletedDrill(t *testing.T) {
	ctx := context.Background()
	g := buildGraph(t, "e4 e5")
	repo := history.NewMemoryRepository()
	mgr := NewManager(g, repo, ReplyWeighted, 42)

	s, err := mgr.StartDrill(ctx, nchess.White, nil)
	if err != nil || s == nil {
		t.Fatalf("StartDrill: %v %v", s, err)
	}
	if a, err := mgr.ApplyMove(ctx, "e4"); err != nil || a != InPrep {
		t.Fatalf("ApplyMove: %v %v", a, err)
	}
	san, err := mgr.MakeMove(ctx)
	if err != nil || san != "e5" {
		t.Fatalf("MakeMove: %q %v", san, err)
	}
	if mgr.StillRunning() {
		t.Fatalf("drill must be finished")
	}

	results, err := repo.RecentResults(ctx, 10)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 recorded drill, got %d", len(results))
	}
	r := results[0]
	if r.Outcome != OutcomeCompleted || r.PliesDeep != 2 || r.Deviations != 0 || r.Color != "white" {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestManagerRecordsReset(t *testing.T) {
	ctx := context.Background()
	g := buildGraph(t, "e4 e5 Nf3")
	repo := history.NewMemoryRepository()
	mgr := NewManager(g, repo, ReplyWeighted, 1)

	if _, err := mgr.StartDrill(ctx, nchess.White, nil); err != nil {
		t.Fatalf("StartDrill: %v", err)
	}
	if _, err := mgr.ApplyMove(ctx, "e4"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	mgr.Reset(ctx)
	if mgr.Session() != nil {
		t.Fatalf("Reset must discard the session")
	}

	results, err := repo.RecentResults(ctx, 10)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != OutcomeReset {
		t.Fatalf("expected one reset result, got %+v", results)
	}
}

func TestManagerRecordsOnce(t *testing.T) {
	ctx := context.Background()
	g := buildGraph(t, "e4")
	repo := history.NewMemoryRepository()
	mgr := NewManager(g, repo, ReplyWeighted, 1)

	if _, err := mgr.StartDrill(ctx, nchess.White, nil); err != nil {
		t.Fatalf("StartDrill: %v", err)
	}
	if a, err := mgr.ApplyMove(ctx, "e4"); err != nil || a != InPrep {
		t.Fatalf("ApplyMove: %v %v", a, err)
	}
	// A further attempt past the end reports EndOfLine but records nothing new.
	if a, err := mgr.ApplyMove(ctx, "e5"); err != nil || a != EndOfLine {
		t.Fatalf("ApplyMove past end: %v %v", a, err)
	}
	mgr.Reset(ctx)

	results, err := repo.RecentResults(ctx, 10)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != OutcomeCompleted {
		t.Fatalf("expected a single completed result, got %+v", results)
	}
}

func TestManagerNoSession(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(buildGraph(t, "e4"), history.NewMemoryRepository(), ReplyWeighted, 0)
	if _, err := mgr.ApplyMove(ctx, "e4"); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := mgr.MakeMove(ctx); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if mgr.StillRunning() || mgr.IsPlayerTurn() {
		t.Fatalf("no session: nothing runs, nobody moves")
	}
}

func TestManagerUnknownPrefix(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(buildGraph(t, "e4"), history.NewMemoryRepository(), ReplyWeighted, 0)
	s, err := mgr.StartDrill(ctx, nchess.White, []string{"d4"})
	if err != nil {
		t.Fatalf("StartDrill: %v", err)
	}
	if s != nil {
		t.Fatalf("unknown prefix must not produce a session")
	}
}
