package drill

import (
	"context"
	"errors"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/kapu/chess-driller/internal/domain"
	"github.com/kapu/chess-driller/internal/history"
	"github.com/kapu/chess-driller/internal/obslog"
	"github.com/kapu/chess-driller/internal/repertoire"
)

// Drill outcomes recorded to the history repository.
const (
	OutcomeCompleted = "completed"
	OutcomeReset     = "reset"
)

var ErrNoSession = errors.New("no drill session active")

// Manager is the session driver: it owns the repertoire graph, at most one
// active session, and records finished drills. The graph is shared
// read-only with every session it hands out.
type Manager struct {
	graph  *repertoire.Graph
	repo   history.Repository
	policy ReplyPolicy
	seed   int64

	session  *Session
	opening  []string
	recorded bool
}

func NewManager(graph *repertoire.Graph, repo history.Repository, policy ReplyPolicy, seed int64) *Manager {
	if policy != ReplyMostPlayed {
		policy = ReplyWeighted
	}
	return &Manager{graph: graph, repo: repo, policy: policy, seed: seed}
}

// StartDrill replaces any current session with one resolved from the given
// opening prefix. A nil session with nil error means the prefix is unknown
// and there is nothing to drill yet.
func (m *Manager) StartDrill(ctx context.Context, color nchess.Color, opening []string) (*Session, error) {
	if m.session != nil && m.session.StillRunning() {
		m.record(ctx, OutcomeReset)
	}
	m.session = nil

	opts := []Option{WithPolicy(m.policy)}
	if m.seed != 0 {
		opts = append(opts, WithSeed(m.seed))
	}
	s, err := StartDrill(m.graph, color, opening, opts...)
	if err != nil {
		obslog.L().Error("drill_start_failed", zap.Strings("opening", opening), zap.Error(err))
		return nil, err
	}
	if s == nil {
		obslog.L().Info("drill_no_line", zap.Strings("opening", opening))
		return nil, nil
	}
	m.session = s
	m.opening = append([]string(nil), opening...)
	m.recorded = false
	obslog.L().Info("drill_start",
		zap.String("session_uuid", s.ID()),
		zap.String("color", colorName(s.Color())),
		zap.Int("ply", s.Ply()),
	)
	return s, nil
}

// ApplyMove forwards a player move to the active session and records the
// drill once the end of the known line is consumed.
func (m *Manager) ApplyMove(ctx context.Context, san string) (Assessment, error) {
	if m.session == nil {
		return "", ErrNoSession
	}
	assessment, err := m.session.ApplyMove(san)
	if err != nil {
		obslog.L().Error("drill_board_diverged",
			zap.String("session_uuid", m.session.ID()),
			zap.String("san", san),
			zap.Error(err),
		)
		return assessment, err
	}
	switch assessment {
	case Deviated:
		obslog.L().Info("drill_deviation",
			zap.String("session_uuid", m.session.ID()),
			zap.String("san", san),
			zap.Int("ply", m.session.Ply()),
		)
	case EndOfLine:
		m.record(ctx, OutcomeCompleted)
	case InPrep:
		if !m.session.StillRunning() {
			m.record(ctx, OutcomeCompleted)
		}
	}
	return assessment, nil
}

// MakeMove plays the bot reply on the active session.
func (m *Manager) MakeMove(ctx context.Context) (string, error) {
	if m.session == nil {
		return "", ErrNoSession
	}
	san, err := m.session.MakeMove()
	if err != nil {
		obslog.L().Error("drill_board_diverged",
			zap.String("session_uuid", m.session.ID()),
			zap.Error(err),
		)
		return "", err
	}
	if !m.session.StillRunning() {
		m.record(ctx, OutcomeCompleted)
	}
	return san, nil
}

// Session returns the active session, nil when none.
func (m *Manager) Session() *Session { return m.session }

// IsPlayerTurn reports whose turn it is on the active session.
func (m *Manager) IsPlayerTurn() bool {
	return m.session != nil && m.session.IsPlayerTurn()
}

// StillRunning reports whether an active session can continue.
func (m *Manager) StillRunning() bool {
	return m.session != nil && m.session.StillRunning()
}

// Reset discards the current session, recording it as reset when it was
// still running.
func (m *Manager) Reset(ctx context.Context) {
	if m.session == nil {
		return
	}
	if m.session.StillRunning() {
		m.record(ctx, OutcomeReset)
	}
	obslog.L().Info("drill_reset", zap.String("session_uuid", m.session.ID()))
	m.session = nil
	m.opening = nil
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}

func (m *Manager) record(ctx context.Context, outcome string) {
	if m.repo == nil || m.session == nil || m.recorded {
		return
	}
	m.recorded = true
	s := m.session
	result := &domain.DrillResult{
		SessionUUID: s.ID(),
		Color:       colorName(s.Color()),
		Opening:     append([]string(nil), m.opening...),
		PliesDeep:   s.Ply(),
		Deviations:  s.Deviations(),
		Outcome:     outcome,
		StartedAt:   s.StartedAt(),
		EndedAt:     time.Now(),
	}
	if _, err := m.repo.InsertResult(ctx, result); err != nil && !errors.Is(err, history.ErrDuplicateResult) {
		obslog.L().Error("drill_result_persist_error",
			zap.String("session_uuid", s.ID()),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("drill_result_persist",
		zap.String("session_uuid", s.ID()),
		zap.String("outcome", outcome),
		zap.Int("plies", result.PliesDeep),
		zap.Int("deviations", result.Deviations),
	)
}
