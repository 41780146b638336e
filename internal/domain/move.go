package domain

import "fmt"

// Move removes Amount tokens from pile Pile. Single-pile games always use pile 0.
type Move struct {
	Pile   int `json:"pile"`
	Amount int `json:"amount"`
}

func (m Move) String() string { return fmt.Sprintf("take %d from pile %d", m.Amount, m.Pile) }

// Player identifies a side of the table.
type Player uint8

const (
	Nobody Player = iota
	Human
	Computer
)

func (p Player) String() string {
	switch p {
	case Human:
		return "human"
	case Computer:
		return "computer"
	default:
		return "nobody"
	}
}

// playerFor maps the turn flag to the side it names.
func playerFor(turn bool) Player {
	if turn {
		return Human
	}
	return Computer
}

// ParsePlayer is the inverse of Player.String.
func ParsePlayer(s string) Player {
	switch s {
	case "human":
		return Human
	case "computer":
		return Computer
	default:
		return Nobody
	}
}

func (p Player) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Player) UnmarshalText(b []byte) error {
	*p = ParsePlayer(string(b))
	return nil
}
