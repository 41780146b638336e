package domain

import "fmt"

// Kind names a game variant.
type Kind string

const (
	Nim     Kind = "nim"
	Marbles Kind = "marbles"
)

// Rules parameterizes the pile game: how many tokens one move may take and
// the bounds used when generating a random starting position.
type Rules struct {
	Kind Kind
	// Cap is the most tokens a single move may remove; 0 means the pile is
	// the only bound.
	Cap      int
	MinPiles int
	MaxPiles int
	MinSize  int
	MaxSize  int
}

// NimRules returns plain Nim: 3-5 piles of 1-6 tokens, take any amount from one pile.
func NimRules() Rules {
	return Rules{Kind: Nim, Cap: 0, MinPiles: 3, MaxPiles: 5, MinSize: 1, MaxSize: 6}
}

// MarblesRules returns the subtraction game: one pile of 10-20 tokens, take 1-3.
func MarblesRules() Rules {
	return Rules{Kind: Marbles, Cap: 3, MinPiles: 1, MaxPiles: 1, MinSize: 10, MaxSize: 20}
}

// RulesFor looks up the preset for a kind.
func RulesFor(k Kind) (Rules, bool) {
	switch k {
	case Nim:
		return NimRules(), true
	case Marbles:
		return MarblesRules(), true
	default:
		return Rules{}, false
	}
}

// Validate reports ErrInvalidRules for a rule set no game can be built from.
func (r Rules) Validate() error {
	switch {
	case r.Cap < 0:
		return fmt.Errorf("%w: negative cap %d", ErrInvalidRules, r.Cap)
	case r.MinPiles < 1 || r.MaxPiles < r.MinPiles:
		return fmt.Errorf("%w: pile count range [%d,%d]", ErrInvalidRules, r.MinPiles, r.MaxPiles)
	case r.MinSize < 0 || r.MaxSize < r.MinSize:
		return fmt.Errorf("%w: pile size range [%d,%d]", ErrInvalidRules, r.MinSize, r.MaxSize)
	}
	return nil
}

// pileValue is the Grundy value of a single pile under these rules.
// Unbounded takes give the pile size itself; a cap of c gives the period
// c+1 sequence of the subtraction game.
func (r Rules) pileValue(p int) int {
	if r.Cap == 0 {
		return p
	}
	return p % (r.Cap + 1)
}

func (r Rules) allows(amount int) bool {
	if amount < 1 {
		return false
	}
	return r.Cap == 0 || amount <= r.Cap
}
