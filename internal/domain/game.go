package domain

import (
	"errors"
	"fmt"
)

// Game holds the current state of a pile game: the piles, whose move it is
// and every move applied so far.
type Game struct {
	rules   Rules
	piles   []int
	turn    bool // true when the human moves next
	history []Move
}

// Errors returned by domain operations.
var (
	ErrOutOfRange        = errors.New("pile index out of range")
	ErrAmountOutOfBounds = errors.New("amount out of bounds")
	ErrPileEmpty         = errors.New("pile is empty")
	ErrAmountExceedsPile = errors.New("amount exceeds pile")
	ErrGameOver          = errors.New("game over")
	ErrInvalidRules      = errors.New("invalid rules")
)

// New returns a game over the given piles. humanFirst sets the initial turn.
func New(rules Rules, piles []int, humanFirst bool) (*Game, error) {
	if rules.Cap < 0 {
		return nil, fmt.Errorf("%w: negative cap %d", ErrInvalidRules, rules.Cap)
	}
	if len(piles) == 0 {
		return nil, fmt.Errorf("%w: no piles", ErrInvalidRules)
	}
	cp := make([]int, len(piles))
	for i, p := range piles {
		if p < 0 {
			return nil, fmt.Errorf("%w: pile %d holds %d", ErrInvalidRules, i, p)
		}
		cp[i] = p
	}
	return &Game{rules: rules, piles: cp, turn: humanFirst}, nil
}

// Apply validates m and, if legal, removes the tokens, flips the turn and
// records the move. A rejected move leaves the game untouched.
func (g *Game) Apply(m Move) error {
	if m.Pile < 0 || m.Pile >= len(g.piles) {
		return ErrOutOfRange
	}
	if !g.rules.allows(m.Amount) {
		return ErrAmountOutOfBounds
	}
	pile := g.piles[m.Pile]
	if pile == 0 {
		return ErrPileEmpty
	}
	if m.Amount > pile {
		return ErrAmountExceedsPile
	}

	g.piles[m.Pile] = pile - m.Amount
	g.turn = !g.turn
	g.history = append(g.history, m)
	return nil
}

// ApplyOK is Apply for callers that only need the success flag.
func (g *Game) ApplyOK(m Move) bool { return g.Apply(m) == nil }

// Undo reverts the last move. It reports false, and does nothing, when no
// move has been made.
func (g *Game) Undo() bool {
	n := len(g.history)
	if n == 0 {
		return false
	}
	m := g.history[n-1]
	g.history = g.history[:n-1]
	g.piles[m.Pile] += m.Amount
	g.turn = !g.turn
	return true
}

// IsOver reports whether every pile is empty.
func (g *Game) IsOver() bool {
	for _, p := range g.piles {
		if p != 0 {
			return false
		}
	}
	return true
}

// Grundy returns the nim-value of the position: the XOR of the per-pile
// values, each pile being an independent component of the sum.
func (g *Game) Grundy() int {
	v := 0
	for _, p := range g.piles {
		v ^= g.rules.pileValue(p)
	}
	return v
}

// Winner reports who took the last token. ok is false while the game runs.
func (g *Game) Winner() (Player, bool) {
	if !g.IsOver() {
		return Nobody, false
	}
	// The side left to move facing empty piles has lost.
	return playerFor(!g.turn), true
}

// ToMove returns the side that moves next.
func (g *Game) ToMove() Player { return playerFor(g.turn) }

// LegalMoves lists every legal move ordered by pile, then amount.
func (g *Game) LegalMoves() []Move {
	var out []Move
	for i, p := range g.piles {
		max := p
		if g.rules.Cap > 0 && g.rules.Cap < max {
			max = g.rules.Cap
		}
		for a := 1; a <= max; a++ {
			out = append(out, Move{Pile: i, Amount: a})
		}
	}
	return out
}

func (g *Game) Rules() Rules { return g.rules }

func (g *Game) Kind() Kind { return g.rules.Kind }

// Turn is true when the human moves next.
func (g *Game) Turn() bool { return g.turn }

func (g *Game) NumPiles() int { return len(g.piles) }

// Moves is the number of moves in the history.
func (g *Game) Moves() int { return len(g.history) }

// Pile returns the size of pile i.
func (g *Game) Pile(i int) int { return g.piles[i] }

// Piles returns a copy of the pile sizes.
func (g *Game) Piles() []int { return append([]int(nil), g.piles...) }

// History returns a copy of the applied moves, oldest first.
func (g *Game) History() []Move { return append([]Move(nil), g.history...) }

// LastMove returns the most recent move, if any.
func (g *Game) LastMove() (Move, bool) {
	if len(g.history) == 0 {
		return Move{}, false
	}
	return g.history[len(g.history)-1], true
}

// Clone returns an independent deep copy.
func (g *Game) Clone() *Game {
	return &Game{
		rules:   g.rules,
		piles:   g.Piles(),
		turn:    g.turn,
		history: g.History(),
	}
}

// Snapshot is an immutable view of a game at one point in time, handed to
// whatever renders it.
type Snapshot struct {
	Kind   Kind   `json:"kind"`
	Piles  []int  `json:"piles"`
	Turn   bool   `json:"turn"`
	Moves  int    `json:"moves"`
	Grundy int    `json:"grundy"`
	Over   bool   `json:"over"`
	Winner string `json:"winner,omitempty"`
	Last   *Move  `json:"last,omitempty"`
	// MaxTake is the largest legal amount per pile, 0 for an empty pile.
	MaxTake []int `json:"maxTake"`
}

// Snapshot captures the current position.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Kind:   g.rules.Kind,
		Piles:  g.Piles(),
		Turn:   g.turn,
		Moves:  len(g.history),
		Grundy: g.Grundy(),
		Over:   g.IsOver(),
	}
	s.MaxTake = make([]int, len(g.piles))
	for _, m := range g.LegalMoves() {
		// amounts ascend within a pile, so the last one seen is the largest
		s.MaxTake[m.Pile] = m.Amount
	}
	if w, ok := g.Winner(); ok {
		s.Winner = w.String()
	}
	if m, ok := g.LastMove(); ok {
		s.Last = &m
	}
	return s
}
