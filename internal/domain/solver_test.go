package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptimalMoveNim(t *testing.T) {
	t.Run("reduces 3,4,5 to zero", func(t *testing.T) {
		g := newNim(t, 3, 4, 5)
		require.Equal(t, 2, g.Grundy())

		m, err := OptimalMove(g)
		require.NoError(t, err)
		require.Equal(t, Move{Pile: 0, Amount: 2}, m)

		require.NoError(t, g.Apply(m))
		require.Equal(t, []int{1, 4, 5}, g.Piles())
		require.Zero(t, g.Grundy())
	})

	t.Run("lowest pile index wins ties", func(t *testing.T) {
		// grundy 7: every pile of 7 can be emptied
		g := newNim(t, 7, 7, 7)
		m, err := OptimalMove(g)
		require.NoError(t, err)
		require.Equal(t, Move{Pile: 0, Amount: 7}, m)
	})

	t.Run("skips empty piles", func(t *testing.T) {
		g := newNim(t, 0, 0, 5)
		m, err := OptimalMove(g)
		require.NoError(t, err)
		require.Equal(t, Move{Pile: 2, Amount: 5}, m)
	})

	t.Run("losing position takes one from first non-empty pile", func(t *testing.T) {
		g := newNim(t, 0, 2, 2)
		require.Zero(t, g.Grundy())
		m, err := OptimalMove(g)
		require.NoError(t, err)
		require.Equal(t, Move{Pile: 1, Amount: 1}, m)
	})

	t.Run("game over", func(t *testing.T) {
		_, err := OptimalMove(newNim(t, 0, 0))
		require.ErrorIs(t, err, ErrGameOver)
	})
}

func TestOptimalMoveMarbles(t *testing.T) {
	t.Run("pile of ten", func(t *testing.T) {
		g := newMarbles(t, 10)
		require.Equal(t, 2, g.Grundy())
		m, err := OptimalMove(g)
		require.NoError(t, err)
		require.Equal(t, Move{Pile: 0, Amount: 2}, m)
		require.NoError(t, g.Apply(m))
		require.Equal(t, 8, g.Pile(0))
		require.Zero(t, g.Grundy())
	})

	t.Run("multiple of four takes one", func(t *testing.T) {
		m, err := OptimalMove(newMarbles(t, 12))
		require.NoError(t, err)
		require.Equal(t, Move{Pile: 0, Amount: 1}, m)
	})

	t.Run("winning move is pile mod four", func(t *testing.T) {
		for pile := 1; pile <= 40; pile++ {
			if pile%4 == 0 {
				continue
			}
			m, err := OptimalMove(newMarbles(t, pile))
			require.NoError(t, err)
			require.Equal(t, pile%4, m.Amount)
			require.LessOrEqual(t, m.Amount, 3)
			require.LessOrEqual(t, m.Amount, pile)
		}
	})
}

// Every non-zero position up to the bound must have a move to zero.
func TestOptimalMoveSoundnessExhaustive(t *testing.T) {
	const max = 7
	for a := 0; a <= max; a++ {
		for b := 0; b <= max; b++ {
			for c := 0; c <= max; c++ {
				g := newNim(t, a, b, c)
				if g.IsOver() {
					continue
				}
				m, err := OptimalMove(g)
				require.NoError(t, err)
				nonZero := g.Grundy() != 0
				require.NoError(t, g.Apply(m), "piles %d,%d,%d move %v", a, b, c, m)
				if nonZero {
					require.Zero(t, g.Grundy(), "piles %d,%d,%d move %v", a, b, c, m)
				}
			}
		}
	}
}

func TestOptimalMoveCappedMultiPile(t *testing.T) {
	rules := MarblesRules()
	for a := 0; a <= 9; a++ {
		for b := 0; b <= 9; b++ {
			g, err := New(rules, []int{a, b}, true)
			require.NoError(t, err)
			if g.IsOver() || g.Grundy() == 0 {
				continue
			}
			m, err := OptimalMove(g)
			require.NoError(t, err)
			require.NoError(t, g.Apply(m))
			require.Zero(t, g.Grundy(), "piles %d,%d move %v", a, b, m)
		}
	}
}

// Solver against solver from a winning start: the side holding the
// non-zero position always takes the last token.
func TestSolverSelfPlay(t *testing.T) {
	g := newNim(t, 3, 4, 5)
	for !g.IsOver() {
		m, err := OptimalMove(g)
		require.NoError(t, err)
		require.NoError(t, g.Apply(m))
	}
	w, ok := g.Winner()
	require.True(t, ok)
	require.Equal(t, Human, w)
}
