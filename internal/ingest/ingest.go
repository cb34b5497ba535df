package ingest

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/kapu/chess-driller/internal/domain"
	"github.com/kapu/chess-driller/internal/obslog"
	"github.com/kapu/chess-driller/pkg/chesscomdto"
)

// GameRecords converts downloaded games into the move sequences the
// repertoire builder consumes. Non-standard variants and games that fail to
// parse are skipped, not fatal: one bad record should not cost the corpus.
func GameRecords(games []chesscomdto.Game, account string, maxPly int) []domain.GameRecord {
	records := make([]domain.GameRecord, 0, len(games))
	skipped := 0
	for _, g := range games {
		if g.Rules != "" && g.Rules != "chess" {
			skipped++
			continue
		}
		if strings.TrimSpace(g.PGN) == "" {
			skipped++
			continue
		}
		moves, err := MovesFromPGN(g.PGN, maxPly)
		if err != nil {
			obslog.L().Warn("game_parse_failed",
				zap.String("account", account),
				zap.String("url", g.URL),
				zap.Error(err),
			)
			skipped++
			continue
		}
		if len(moves) == 0 {
			skipped++
			continue
		}
		records = append(records, domain.GameRecord{Account: account, Moves: moves})
	}
	obslog.L().Info("games_ingested",
		zap.String("account", account),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return records
}

// MovesFromPGN parses one PGN game and re-encodes it as a SAN sequence from
// the initial position. maxPly > 0 truncates the sequence.
func MovesFromPGN(pgn string, maxPly int) ([]string, error) {
	opt, err := nchess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("parse pgn: %w", err)
	}
	parsed := nchess.NewGame(opt)

	replay := nchess.NewGame()
	moves := parsed.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		if maxPly > 0 && len(out) >= maxPly {
			break
		}
		san := nchess.AlgebraicNotation{}.Encode(replay.Position(), mv)
		if san == "" {
			return nil, fmt.Errorf("encode san at ply %d", len(out))
		}
		if err := replay.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("replay ply %d: %w", len(out), err)
		}
		out = append(out, san)
	}
	return out, nil
}
