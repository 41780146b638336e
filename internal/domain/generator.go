package domain

import (
	"time"

	"golang.org/x/exp/rand"
)

// Source supplies uniform integers in [0, n). *rand.Rand satisfies it;
// tests substitute fixed sequences.
type Source interface {
	Intn(n int) int
}

type GeneratorOption func(*Generator)

// WithRandomFirstMover draws the first mover instead of letting the human start.
func WithRandomFirstMover() GeneratorOption {
	return func(g *Generator) {
		g.randomFirst = true
	}
}

// Generator builds random starting positions.
type Generator struct {
	src         Source
	randomFirst bool
}

func NewGenerator(src Source, options ...GeneratorOption) *Generator {
	g := &Generator{src: src}
	for _, option := range options {
		option(g)
	}
	return g
}

// DefaultGenerator draws from a time-seeded source.
func DefaultGenerator(options ...GeneratorOption) *Generator {
	src := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	return NewGenerator(src, options...)
}

// Generate returns a fresh game within the bounds of rules.
func (g *Generator) Generate(rules Rules) (*Game, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	n := g.between(rules.MinPiles, rules.MaxPiles)
	piles := make([]int, n)
	for i := range piles {
		piles[i] = g.between(rules.MinSize, rules.MaxSize)
	}
	humanFirst := true
	if g.randomFirst {
		humanFirst = g.src.Intn(2) == 0
	}
	return New(rules, piles, humanFirst)
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.src.Intn(hi-lo+1)
}
