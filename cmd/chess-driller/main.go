package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/kapu/chess-driller/internal/chesscom"
	appcfg "github.com/kapu/chess-driller/internal/config"
	"github.com/kapu/chess-driller/internal/domain"
	"github.com/kapu/chess-driller/internal/drill"
	"github.com/kapu/chess-driller/internal/gamecache"
	"github.com/kapu/chess-driller/internal/history"
	"github.com/kapu/chess-driller/internal/ingest"
	"github.com/kapu/chess-driller/internal/notation"
	"github.com/kapu/chess-driller/internal/obslog"
	"github.com/kapu/chess-driller/internal/repertoire"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	var repo history.Repository
	if cfg.DatabaseURL != "" {
		repo, err = history.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("history repo init error: %v", err)
		}
	} else {
		repo = history.NewMemoryRepository()
	}
	defer repo.Close()

	graph, err := loadOrBuildGraph(cfg)
	if err != nil {
		log.Fatalf("repertoire error: %v", err)
	}
	if graph.Empty() {
		obslog.L().Warn("repertoire_empty")
	}

	mgr := drill.NewManager(graph, repo, drill.ReplyPolicy(cfg.ReplyPolicy), cfg.ReplySeed)
	runDriver(mgr, repo)
}

// loadOrBuildGraph loads the persisted repertoire, or builds it from the
// configured accounts' game histories and persists it for the next run.
func loadOrBuildGraph(cfg *appcfg.AppConfig) (*repertoire.Graph, error) {
	path := cfg.DatabasePath
	if strings.TrimSpace(path) == "" {
		path = repertoire.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		graph, err := repertoire.Load(path)
		if err != nil {
			return nil, err
		}
		obslog.L().Info("repertoire_loaded", zap.String("path", path), zap.Int("positions", graph.Size()))
		return graph, nil
	}

	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("no repertoire at %q and no accounts configured", path)
	}

	opts := []chesscom.Option{
		chesscom.WithHeaderProvider(func() map[string]string {
			return map[string]string{"User-Agent": "chess-driller"}
		}),
	}
	if cfg.RedisURL != "" {
		cache, err := gamecache.New(cfg.RedisURL, time.Duration(cfg.CacheTTLSec)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("game cache init: %w", err)
		}
		defer cache.Close()
		opts = append(opts, chesscom.WithCache(cache))
	}
	client := chesscom.NewClient(cfg.ChessComBaseURL, opts...)

	ctx := context.Background()
	var records []domain.GameRecord
	for _, account := range cfg.Accounts {
		games, err := client.AllGames(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("download games for %q: %w", account, err)
		}
		records = append(records, ingest.GameRecords(games, account, cfg.MaxPly)...)
	}

	graph := repertoire.Build(records, cfg.MaxPly)
	if err := graph.Save(path); err != nil {
		return nil, err
	}
	obslog.L().Info("graph_build",
		zap.Int("games", len(records)),
		zap.Int("positions", graph.Size()),
		zap.String("path", path),
	)
	return graph, nil
}

// runDriver is the stdin stand-in for the application event loop: free-play
// moves accumulate until a drill starts, then each SAN line is assessed and
// answered.
func runDriver(mgr *drill.Manager, repo history.Repository) {
	ctx := context.Background()
	freeGame := nchess.NewGame()
	var sanMoves []string

	fmt.Println("chess-driller ready. Commands: start [white|black], reset, history, quit; anything else is a SAN move.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			mgr.Reset(ctx)
			return
		case "reset":
			mgr.Reset(ctx)
			freeGame = nchess.NewGame()
			sanMoves = nil
			fmt.Println("board reset")
		case "history":
			printHistory(ctx, repo)
		case "start":
			if mgr.StillRunning() {
				fmt.Println("drill already running")
				continue
			}
			color := nchess.White
			if len(fields) > 1 && strings.EqualFold(fields[1], "black") {
				color = nchess.Black
			}
			session, err := mgr.StartDrill(ctx, color, sanMoves)
			if err != nil {
				fmt.Printf("internal error: %v\n", err)
				continue
			}
			if session == nil {
				fmt.Println("no known line through this position yet; keep playing")
				continue
			}
			fmt.Printf("drill started at ply %d\n", session.Ply())
			if !session.IsPlayerTurn() {
				botReply(ctx, mgr)
			}
		default:
			playSAN(ctx, mgr, freeGame, &sanMoves, fields[0])
		}
	}
}

// canonicalSAN resolves raw input against a position and re-encodes it, so
// lenient spellings like "Ngf3" match the graph's keys.
func canonicalSAN(pos *nchess.Position, san string) (string, *nchess.Move, bool) {
	mv, err := notation.Decode(pos, san)
	if err != nil {
		return "", nil, false
	}
	out, ok := notation.Encode(pos, mv)
	if !ok {
		return "", nil, false
	}
	return out, mv, true
}

func playSAN(ctx context.Context, mgr *drill.Manager, freeGame *nchess.Game, sanMoves *[]string, san string) {
	session := mgr.Session()
	if session == nil || !session.StillRunning() {
		// Free play: track moves so a later start can resume from here.
		canonical, mv, ok := canonicalSAN(freeGame.Position(), san)
		if !ok {
			fmt.Println("illegal move")
			return
		}
		if err := freeGame.Move(mv, nil); err != nil {
			fmt.Println("illegal move")
			return
		}
		*sanMoves = append(*sanMoves, canonical)
		fmt.Printf("%s\n", canonical)
		return
	}

	// Raw input is legality-filtered and canonicalized before it reaches the
	// session, whose edges are keyed by canonical SAN.
	canonical, _, ok := canonicalSAN(session.Position(), san)
	if !ok {
		fmt.Println("illegal move")
		return
	}
	assessment, err := mgr.ApplyMove(ctx, canonical)
	if err != nil {
		if errors.Is(err, drill.ErrBoardDiverged) {
			fmt.Printf("internal error: %v\n", err)
			return
		}
		fmt.Printf("error: %v\n", err)
		return
	}
	switch assessment {
	case drill.InPrep:
		fmt.Println("in prep")
		if mgr.StillRunning() && !mgr.IsPlayerTurn() {
			botReply(ctx, mgr)
		}
		if !mgr.StillRunning() {
			fmt.Println("end of known line, well done")
		}
	case drill.Deviated:
		fmt.Println("deviated from your repertoire")
	case drill.EndOfLine:
		fmt.Println("you've reached the end of known theory")
	}
}

func botReply(ctx context.Context, mgr *drill.Manager) {
	san, err := mgr.MakeMove(ctx)
	if err != nil {
		fmt.Printf("internal error: %v\n", err)
		return
	}
	if san == "" {
		fmt.Println("no known reply, end of line")
		return
	}
	fmt.Printf("bot plays %s\n", san)
	if !mgr.StillRunning() {
		fmt.Println("end of known line, well done")
	}
}

func printHistory(ctx context.Context, repo history.Repository) {
	results, err := repo.RecentResults(ctx, 10)
	if err != nil {
		fmt.Printf("history error: %v\n", err)
		return
	}
	if len(results) == 0 {
		fmt.Println("no drills recorded yet")
		return
	}
	for _, r := range results {
		fmt.Printf("%s %s plies=%d deviations=%d %s\n",
			r.EndedAt.Format("2006-01-02 15:04"), r.Color, r.PliesDeep, r.Deviations, r.Outcome)
	}
}
