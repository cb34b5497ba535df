package notation

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	game := nchess.NewGame()
	pos := game.Position()

	mv, err := Decode(pos, "e4")
	if err != nil {
		t.Fatalf("Decode e4: %v", err)
	}
	san, ok := Encode(pos, mv)
	if !ok {
		t.Fatalf("Encode returned not ok for a legal move")
	}
	if san != "e4" {
		t.Fatalf("round trip = %q, want e4", san)
	}
}

func TestEncodeCanonicalizesSpelling(t *testing.T) {
	game := nchess.NewGame()
	pos := game.Position()

	// Over-disambiguated but legal: only the g1 knight reaches f3.
	mv, err := Decode(pos, "Ngf3")
	if err != nil {
		t.Fatalf("Decode Ngf3: %v", err)
	}
	san, ok := Encode(pos, mv)
	if !ok {
		t.Fatalf("Encode returned not ok for a legal move")
	}
	if san != "Nf3" {
		t.Fatalf("canonical san = %q, want Nf3", san)
	}
}

func TestDecodeUnresolvable(t *testing.T) {
	game := nchess.NewGame()
	if _, err := Decode(game.Position(), "Qxf7#"); err == nil {
		t.Fatalf("expected error for move impossible in the initial position")
	}
	if _, err := Decode(game.Position(), "zz9"); err == nil {
		t.Fatalf("expected error for garbage notation")
	}
}

func TestEncodeIllegalMove(t *testing.T) {
	game := nchess.NewGame()
	pos := game.Position()
	mv, err := Decode(pos, "e4")
	if err != nil {
		t.Fatalf("Decode e4: %v", err)
	}
	if err := game.Move(mv, nil); err != nil {
		t.Fatalf("Move e4: %v", err)
	}
	// e4 is not legal again with black to move.
	if san, ok := Encode(game.Position(), mv); ok {
		t.Fatalf("Encode accepted an illegal move as %q", san)
	}
}

func TestDecodeNilPosition(t *testing.T) {
	if _, err := Decode(nil, "e4"); err == nil {
		t.Fatalf("expected error for nil position")
	}
	if _, ok := Encode(nil, nil); ok {
		t.Fatalf("expected not ok for nil inputs")
	}
}
