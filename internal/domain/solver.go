package domain

import "fmt"

// OptimalMove returns the best move for the side to move. With a non-zero
// Grundy value it returns a move that leaves the position at zero; from a
// zero position every move loses, so it takes one token from the first
// non-empty pile. Ties go to the lowest pile index.
func OptimalMove(g *Game) (Move, error) {
	if g.IsOver() {
		return Move{}, ErrGameOver
	}
	grundy := g.Grundy()
	if grundy == 0 {
		for i, p := range g.piles {
			if p > 0 {
				return Move{Pile: i, Amount: 1}, nil
			}
		}
	}
	for i, p := range g.piles {
		if p == 0 {
			continue
		}
		v := g.rules.pileValue(p)
		if t := v ^ grundy; t < v {
			return Move{Pile: i, Amount: v - t}, nil
		}
	}
	// A non-zero nim-value always has a reducing pile.
	panic(fmt.Sprintf("domain: no winning move for piles %v (grundy %d)", g.piles, grundy))
}
