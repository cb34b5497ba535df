package chesscom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/kapu/chess-driller/internal/gamecache"
	"github.com/kapu/chess-driller/pkg/chesscomdto"
)

func newTestServer(t *testing.T, monthHits *int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/pub/player/alice/games/archives", func(w http.ResponseWriter, r *http.Request) {
		resp := chesscomdto.ArchivesResponse{Archives: []string{
			server.URL + "/pub/player/alice/games/2024/01",
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/pub/player/alice/games/2024/01", func(w http.ResponseWriter, r *http.Request) {
		if monthHits != nil {
			atomic.AddInt64(monthHits, 1)
		}
		resp := chesscomdto.MonthlyGamesResponse{Games: []chesscomdto.Game{
			{PGN: "1. e4 e5 *", Rules: "chess", White: chesscomdto.Player{Username: "alice"}},
			{PGN: "1. d4 d5 *", Rules: "chess", Black: chesscomdto.Player{Username: "alice"}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAllGames(t *testing.T) {
	server := newTestServer(t, nil)
	client := NewClient(server.URL, WithTimeout(2*time.Second))

	games, err := client.AllGames(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("AllGames: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if games[0].White.Username != "alice" {
		t.Fatalf("unexpected first game: %+v", games[0])
	}
}

func TestListArchivesNotFound(t *testing.T) {
	server := newTestServer(t, nil)
	client := NewClient(server.URL, WithTimeout(2*time.Second), WithRetry(1))
	if _, err := client.ListArchives(context.Background(), "nobody"); err == nil {
		t.Fatalf("expected error for unknown player")
	}
}

func TestMonthlyGamesUsesCache(t *testing.T) {
	var monthHits int64
	server := newTestServer(t, &monthHits)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	cache, err := gamecache.New(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("gamecache.New: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	client := NewClient(server.URL, WithTimeout(2*time.Second), WithCache(cache))
	ctx := context.Background()

	archive := server.URL + "/pub/player/alice/games/2024/01"
	for i := 0; i < 3; i++ {
		games, err := client.MonthlyGames(ctx, archive)
		if err != nil {
			t.Fatalf("MonthlyGames %d: %v", i, err)
		}
		if len(games) != 2 {
			t.Fatalf("MonthlyGames %d: got %d games", i, len(games))
		}
	}
	if atomic.LoadInt64(&monthHits) != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", monthHits)
	}
}
