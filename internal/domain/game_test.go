package domain

import (
	"errors"
	"reflect"
	"testing"
)

func newNim(t *testing.T, piles ...int) *Game {
	t.Helper()
	g, err := New(NimRules(), piles, true)
	if err != nil {
		t.Fatalf("New(%v) failed: %v", piles, err)
	}
	return g
}

func newMarbles(t *testing.T, pile int) *Game {
	t.Helper()
	g, err := New(MarblesRules(), []int{pile}, true)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", pile, err)
	}
	return g
}

// helper to apply a sequence of moves
func playMoves(t *testing.T, g *Game, moves []Move) {
	t.Helper()
	for i, m := range moves {
		if err := g.Apply(m); err != nil {
			t.Fatalf("move %d (%v) failed: %v", i, m, err)
		}
	}
}

func TestNewGameInitialState(t *testing.T) {
	g := newNim(t, 3, 4, 5)
	if !g.Turn() {
		t.Fatalf("expected human to move first")
	}
	if g.Moves() != 0 {
		t.Fatalf("expected 0 moves, got %d", g.Moves())
	}
	if g.IsOver() {
		t.Fatalf("expected game not over")
	}
	if w, ok := g.Winner(); ok {
		t.Fatalf("expected no winner, got %v", w)
	}
	if got := g.Piles(); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Fatalf("unexpected piles %v", got)
	}
}

func TestNewRejectsBadPiles(t *testing.T) {
	bad := Rules{Kind: Nim, Cap: -1, MinPiles: 1, MaxPiles: 1, MinSize: 1, MaxSize: 1}
	cases := []struct {
		name  string
		rules Rules
		piles []int
	}{
		{"no piles", NimRules(), nil},
		{"negative pile", NimRules(), []int{1, -1}},
		{"negative cap", bad, []int{3}},
	}
	for _, c := range cases {
		if _, err := New(c.rules, c.piles, true); !errors.Is(err, ErrInvalidRules) {
			t.Fatalf("%s: expected ErrInvalidRules, got %v", c.name, err)
		}
	}
}

func TestNewCopiesPiles(t *testing.T) {
	piles := []int{2, 2}
	g, _ := New(NimRules(), piles, true)
	piles[0] = 9
	if g.Pile(0) != 2 {
		t.Fatalf("game aliases caller slice")
	}
}

func TestGrundyNim(t *testing.T) {
	cases := []struct {
		piles []int
		want  int
	}{
		{[]int{3, 4, 5}, 2},
		{[]int{0, 0, 0}, 0},
		{[]int{1, 2, 3}, 0},
		{[]int{7}, 7},
		{[]int{6, 6, 1, 5}, 4},
	}
	for _, c := range cases {
		g := newNim(t, c.piles...)
		if got := g.Grundy(); got != c.want {
			t.Fatalf("Grundy(%v) = %d, want %d", c.piles, got, c.want)
		}
	}
}

func TestGrundyMarbles(t *testing.T) {
	for pile := 0; pile <= 25; pile++ {
		g := newMarbles(t, pile)
		if got := g.Grundy(); got != pile%4 {
			t.Fatalf("Grundy(%d) = %d, want %d", pile, got, pile%4)
		}
	}
}

func TestIllegalMovesLeaveStateUnchanged(t *testing.T) {
	cases := []struct {
		name string
		game func() *Game
		move Move
		err  error
	}{
		{"pile index too large", func() *Game { return newNim(t, 1, 2) }, Move{Pile: 2, Amount: 1}, ErrOutOfRange},
		{"negative pile index", func() *Game { return newNim(t, 1, 2) }, Move{Pile: -1, Amount: 1}, ErrOutOfRange},
		{"zero amount", func() *Game { return newNim(t, 1, 2) }, Move{Pile: 0, Amount: 0}, ErrAmountOutOfBounds},
		{"negative amount", func() *Game { return newNim(t, 1, 2) }, Move{Pile: 1, Amount: -2}, ErrAmountOutOfBounds},
		{"amount exceeds pile", func() *Game { return newNim(t, 1, 2) }, Move{Pile: 1, Amount: 3}, ErrAmountExceedsPile},
		{"empty pile", func() *Game { return newNim(t, 0, 2) }, Move{Pile: 0, Amount: 1}, ErrPileEmpty},
		{"marbles over cap", func() *Game { return newMarbles(t, 10) }, Move{Amount: 4}, ErrAmountOutOfBounds},
		{"marbles exceeds pile", func() *Game { return newMarbles(t, 1) }, Move{Amount: 3}, ErrAmountExceedsPile},
		{"marbles empty", func() *Game { return newMarbles(t, 0) }, Move{Amount: 1}, ErrPileEmpty},
		{"marbles bad pile", func() *Game { return newMarbles(t, 5) }, Move{Pile: 1, Amount: 1}, ErrOutOfRange},
	}
	for _, c := range cases {
		g := c.game()
		before := g.Clone()
		err := g.Apply(c.move)
		if !errors.Is(err, c.err) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.err, err)
		}
		if g.ApplyOK(c.move) {
			t.Fatalf("%s: ApplyOK accepted an illegal move", c.name)
		}
		if !reflect.DeepEqual(g, before) {
			t.Fatalf("%s: state changed after rejected move", c.name)
		}
	}
}

func TestMarblesRejectsThreeFromOne(t *testing.T) {
	g := newMarbles(t, 1)
	if g.ApplyOK(Move{Amount: 3}) {
		t.Fatalf("expected rejection")
	}
	if g.Pile(0) != 1 {
		t.Fatalf("expected pile unchanged at 1, got %d", g.Pile(0))
	}
}

func TestApplyAndUndo(t *testing.T) {
	g := newNim(t, 2, 3)
	if err := g.Apply(Move{Pile: 0, Amount: 2}); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if !reflect.DeepEqual(g.Piles(), []int{0, 3}) || g.Turn() || g.Moves() != 1 {
		t.Fatalf("unexpected state after move: piles=%v turn=%v moves=%d", g.Piles(), g.Turn(), g.Moves())
	}
	if !g.Undo() {
		t.Fatalf("undo reported nothing to undo")
	}
	if !reflect.DeepEqual(g.Piles(), []int{2, 3}) || !g.Turn() || g.Moves() != 0 {
		t.Fatalf("unexpected state after undo: piles=%v turn=%v moves=%d", g.Piles(), g.Turn(), g.Moves())
	}
}

func TestUndoOnEmptyHistoryIsNoop(t *testing.T) {
	g := newMarbles(t, 7)
	before := g.Clone()
	if g.Undo() {
		t.Fatalf("expected Undo to report false")
	}
	if !reflect.DeepEqual(g, before) {
		t.Fatalf("state changed on empty undo")
	}
}

func TestTurnFlipsAndUndoRestores(t *testing.T) {
	g := newNim(t, 5, 5, 5)
	seq := []Move{{0, 1}, {1, 2}, {2, 3}, {0, 4}, {1, 3}}
	for i, m := range seq {
		want := i%2 == 1
		if err := g.Apply(m); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		if g.Turn() != want {
			t.Fatalf("after move %d expected turn %v", i, want)
		}
	}
	for range seq {
		g.Undo()
	}
	if !g.Turn() || !reflect.DeepEqual(g.Piles(), []int{5, 5, 5}) || g.Moves() != 0 {
		t.Fatalf("undoing all moves did not restore start: %+v", g.Snapshot())
	}
}

func TestHistoryReplaysToPiles(t *testing.T) {
	start := []int{4, 1, 6}
	g := newNim(t, start...)
	playMoves(t, g, []Move{{2, 5}, {0, 2}, {1, 1}, {2, 1}})
	replay := newNim(t, start...)
	playMoves(t, replay, g.History())
	if !reflect.DeepEqual(replay.Piles(), g.Piles()) {
		t.Fatalf("replay %v != piles %v", replay.Piles(), g.Piles())
	}
}

func TestGameOverAndWinner(t *testing.T) {
	g := newNim(t, 0, 0, 0)
	if !g.IsOver() {
		t.Fatalf("expected all-zero piles to be over")
	}

	g = newNim(t, 1, 1)
	playMoves(t, g, []Move{{0, 1}})
	if g.IsOver() {
		t.Fatalf("expected game still running")
	}
	playMoves(t, g, []Move{{1, 1}})
	w, ok := g.Winner()
	if !ok || w != Computer {
		t.Fatalf("expected computer to take the last token, got %v ok=%v", w, ok)
	}

	g = newMarbles(t, 3)
	playMoves(t, g, []Move{{0, 3}})
	if w, _ := g.Winner(); w != Human {
		t.Fatalf("expected human win, got %v", w)
	}
}

func TestLegalMoves(t *testing.T) {
	g := newNim(t, 2, 0, 1)
	want := []Move{{0, 1}, {0, 2}, {2, 1}}
	if got := g.LegalMoves(); !reflect.DeepEqual(got, want) {
		t.Fatalf("LegalMoves = %v, want %v", got, want)
	}
	m := newMarbles(t, 10)
	if got := m.LegalMoves(); len(got) != 3 {
		t.Fatalf("expected 3 marbles moves, got %v", got)
	}
	for _, mv := range g.LegalMoves() {
		c := g.Clone()
		if err := c.Apply(mv); err != nil {
			t.Fatalf("listed move %v rejected: %v", mv, err)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := newNim(t, 3, 3)
	c := g.Clone()
	playMoves(t, c, []Move{{0, 3}})
	if g.Pile(0) != 3 || g.Moves() != 0 {
		t.Fatalf("clone shares storage with its source")
	}
}

func TestSnapshot(t *testing.T) {
	g := newNim(t, 1, 2)
	playMoves(t, g, []Move{{1, 2}})
	s := g.Snapshot()
	if s.Kind != Nim || s.Moves != 1 || s.Turn || s.Grundy != 1 || s.Over {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s.Last == nil || *s.Last != (Move{Pile: 1, Amount: 2}) {
		t.Fatalf("expected last move in snapshot, got %+v", s.Last)
	}
	if !reflect.DeepEqual(s.MaxTake, []int{1, 0}) {
		t.Fatalf("unexpected MaxTake %v", s.MaxTake)
	}
	if got := newMarbles(t, 10).Snapshot().MaxTake; !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("marbles MaxTake = %v, want [3]", got)
	}
	s.Piles[0] = 42
	if g.Pile(0) != 1 {
		t.Fatalf("snapshot aliases game piles")
	}
}
