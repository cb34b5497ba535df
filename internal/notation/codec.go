package notation

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// Encode renders a move as SAN for the given position. It reports false when
// the move is not legal there, which callers treat as an internal invariant
// violation rather than user error.
func Encode(pos *nchess.Position, mv *nchess.Move) (string, bool) {
	if pos == nil || mv == nil {
		return "", false
	}
	notationSAN := nchess.AlgebraicNotation{}
	san := notationSAN.Encode(pos, mv)
	if san == "" {
		return "", false
	}
	// Round-trip to confirm the rendered text resolves on this position.
	if _, err := notationSAN.Decode(pos, san); err != nil {
		return "", false
	}
	return san, true
}

// Decode resolves a SAN string against the given position.
func Decode(pos *nchess.Position, san string) (*nchess.Move, error) {
	if pos == nil {
		return nil, fmt.Errorf("resolve san %q: nil position", san)
	}
	mv, err := nchess.AlgebraicNotation{}.Decode(pos, san)
	if err != nil {
		return nil, fmt.Errorf("resolve san %q: %w", san, err)
	}
	return mv, nil
}
