package drill

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"

	"github.com/kapu/chess-driller/internal/notation"
	"github.com/kapu/chess-driller/internal/repertoire"
)

// Assessment classifies one player move against the repertoire.
type Assessment string

const (
	// InPrep means the move matched a known edge and the session advanced.
	InPrep Assessment = "IN_PREP"
	// Deviated means the move is legal but unknown here; nothing advanced.
	Deviated Assessment = "DEVIATED"
	// EndOfLine means the current position has no known continuations.
	EndOfLine Assessment = "END_OF_LINE"
)

// ReplyPolicy selects how the bot picks among known continuations.
type ReplyPolicy string

const (
	// ReplyWeighted picks an edge at random, proportionally to how often it
	// was played in the ingested games.
	ReplyWeighted ReplyPolicy = "weighted"
	// ReplyMostPlayed always picks the most visited edge, ties broken by
	// SAN order.
	ReplyMostPlayed ReplyPolicy = "most_played"
)

// ErrBoardDiverged marks an internal invariant violation: a SAN edge taken
// from the graph could not be resolved against the session's live board.
// The two can only disagree if the session's own transition logic is wrong,
// so this is surfaced loudly instead of crashing.
var ErrBoardDiverged = errors.New("drill board diverged from repertoire line")

// Session is the drill state machine. It owns its live board and a
// non-owning pointer into the repertoire graph, which must outlive it.
type Session struct {
	id    string
	graph *repertoire.Graph
	node  repertoire.NodeID

	game  *nchess.Game
	color nchess.Color
	ply   int

	deviations int
	finished   bool
	startedAt  time.Time

	policy ReplyPolicy
	rng    *rand.Rand
}

// Option configures a session at start time.
type Option func(*Session)

// WithPolicy overrides the default weighted reply selection.
func WithPolicy(p ReplyPolicy) Option {
	return func(s *Session) {
		if p == ReplyWeighted || p == ReplyMostPlayed {
			s.policy = p
		}
	}
}

// WithSeed makes the weighted reply selection deterministic.
func WithSeed(seed int64) Option {
	return func(s *Session) { s.rng = rand.New(rand.NewSource(seed)) }
}

// StartDrill resolves the opening prefix against the graph and returns a
// session positioned there. A prefix the graph does not know is not an
// error: it returns (nil, nil) and the caller stays in free play.
func StartDrill(graph *repertoire.Graph, color nchess.Color, opening []string, opts ...Option) (*Session, error) {
	if graph == nil {
		return nil, nil
	}
	node, ok := graph.FindPath(repertoire.Root, opening)
	if !ok {
		return nil, nil
	}

	game := nchess.NewGame()
	for _, san := range opening {
		mv, err := notation.Decode(game.Position(), san)
		if err != nil {
			return nil, fmt.Errorf("%w: replay opening move %q: %v", ErrBoardDiverged, san, err)
		}
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("%w: replay opening move %q: %v", ErrBoardDiverged, san, err)
		}
	}

	s := &Session{
		id:        uuid.NewString(),
		graph:     graph,
		node:      node,
		game:      game,
		color:     color,
		ply:       len(opening),
		startedAt: time.Now(),
		policy:    ReplyWeighted,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Starting at the end of all known lines leaves nothing to drill.
	if graph.IsLeaf(node) {
		s.finished = true
	}
	return s, nil
}

// IsPlayerTurn derives whose turn it is purely from ply parity and the
// drilled color. Even ply is the first mover's turn.
func (s *Session) IsPlayerTurn() bool {
	return (s.ply%2 == 0) == (s.color == nchess.White)
}

// StillRunning reports whether the session can still consume or produce
// moves. It turns false once the end of a known line has been reached.
func (s *Session) StillRunning() bool {
	return !s.finished
}

// ApplyMove classifies a player move. InPrep advances both the node pointer
// and the live board; Deviated advances neither; EndOfLine marks the
// session finished. The returned error is non-nil only for the internal
// invariant violation described on ErrBoardDiverged.
func (s *Session) ApplyMove(san string) (Assessment, error) {
	if s.graph.IsLeaf(s.node) {
		s.finished = true
		return EndOfLine, nil
	}
	child, ok := s.graph.Child(s.node, san)
	if !ok {
		s.deviations++
		return Deviated, nil
	}
	if err := s.push(san); err != nil {
		return "", err
	}
	s.advance(child)
	return InPrep, nil
}

// MakeMove selects and plays the bot's reply. It returns the empty string
// when the current position has no known continuation, finishing the
// session. Invoked only when it is not the player's turn.
func (s *Session) MakeMove() (string, error) {
	children := s.graph.ChildrenOf(s.node)
	if len(children) == 0 {
		s.finished = true
		return "", nil
	}
	san := s.selectReply(children)
	child, ok := s.graph.Child(s.node, san)
	if !ok {
		// Unreachable: selectReply only returns keys of ChildrenOf.
		return "", fmt.Errorf("%w: selected edge %q vanished", ErrBoardDiverged, san)
	}
	if err := s.push(san); err != nil {
		return "", err
	}
	s.advance(child)
	return san, nil
}

// push resolves a graph edge against the live board and plays it.
func (s *Session) push(san string) error {
	mv, err := notation.Decode(s.game.Position(), san)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBoardDiverged, err)
	}
	if err := s.game.Move(mv, nil); err != nil {
		return fmt.Errorf("%w: play %q: %v", ErrBoardDiverged, san, err)
	}
	return nil
}

func (s *Session) advance(child repertoire.NodeID) {
	s.node = child
	s.ply++
	if s.graph.IsLeaf(child) {
		s.finished = true
	}
}

// selectReply picks a continuation according to the session policy. The SAN
// keys are visited in sorted order so ties and the single-child case are
// deterministic.
func (s *Session) selectReply(children map[string]int) string {
	sans := make([]string, 0, len(children))
	total := 0
	for san, count := range children {
		sans = append(sans, san)
		total += count
	}
	sort.Strings(sans)

	if s.policy == ReplyMostPlayed {
		best := sans[0]
		for _, san := range sans[1:] {
			if children[san] > children[best] {
				best = san
			}
		}
		return best
	}

	r := s.rng.Intn(total)
	for _, san := range sans {
		r -= children[san]
		if r < 0 {
			return san
		}
	}
	return sans[len(sans)-1]
}

// Accessors used by the session driver and for result recording.

func (s *Session) ID() string           { return s.id }
func (s *Session) Color() nchess.Color  { return s.color }
func (s *Session) Ply() int             { return s.ply }
func (s *Session) Deviations() int      { return s.deviations }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) FEN() string          { return s.game.FEN() }

// Position exposes the live board for legality filtering of raw input.
func (s *Session) Position() *nchess.Position { return s.game.Position() }
