package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ssk4988/nim/internal/domain"
	"github.com/ssk4988/nim/internal/store"
)

// Errors exposed by the service layer.
var (
	ErrNotFound      = errors.New("game not found")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrUnknownKind   = errors.New("unknown game kind")
	ErrNotAPlayer    = errors.New("not the player of this game")
)

// Session is the in-memory state tracked per game.
type Session struct {
	ID   string
	Code string
	// Owner is the player allowed to move; anyone else only watches.
	// An empty Owner leaves the game open to every caller.
	Owner    string
	Game     *domain.Game
	Created  time.Time
	Updated  time.Time
	Recorded bool // result written to the store
}

// PlayableBy reports whether player may move in this game.
func (s *Session) PlayableBy(player string) bool {
	return s.Owner == "" || s.Owner == player
}

func (s *Session) copy() *Session {
	cp := *s
	cp.Game = s.Game.Clone()
	return &cp
}

// Update is what subscribers receive after every change to a game.
type Update struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

func (s *Session) update() Update {
	return Update{ID: s.ID, Code: s.Code, Snapshot: s.Game.Snapshot()}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Update
	closed bool
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// send delivers u without blocking; false means the subscriber is full.
func (s *subscriber) send(u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- u:
		return true
	default:
		return false
	}
}

type Option func(*Service)

// WithGenerator replaces the random position generator.
func WithGenerator(g *domain.Generator) Option {
	return func(s *Service) { s.gen = g }
}

// WithStore sets where finished games are recorded.
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns every running game. A single mutex serializes all
// mutations, so a game never sees two moves in flight.
type Service struct {
	mu    sync.Mutex
	games map[string]*Session
	codes map[string]string // join code -> game ID
	subs  map[string]map[*subscriber]struct{}
	gen   *domain.Generator
	store store.Store
	now   func() time.Time
}

// NewService creates a service with a time-seeded generator and an
// in-memory result store.
func NewService(options ...Option) *Service {
	s := &Service{
		games: make(map[string]*Session),
		codes: make(map[string]string),
		subs:  make(map[string]map[*subscriber]struct{}),
		now:   time.Now,
	}
	for _, option := range options {
		option(s)
	}
	if s.gen == nil {
		s.gen = domain.DefaultGenerator()
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	return s
}

// CreateGame generates a new game of the given kind owned by owner. first
// picks who opens; domain.Nobody leaves the choice to the generator. When
// the computer opens it has already moved by the time CreateGame returns.
func (s *Service) CreateGame(ctx context.Context, kind domain.Kind, first domain.Player, owner string) (*Session, error) {
	rules, ok := domain.RulesFor(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	s.mu.Lock()
	g, err := s.gen.Generate(rules)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if first != domain.Nobody && g.ToMove() != first {
		g, _ = domain.New(rules, g.Piles(), first == domain.Human)
	}
	opener := g.ToMove()
	now := s.now()
	gs := &Session{ID: uuid.NewString(), Code: s.uniqueCodeLocked(), Owner: owner, Game: g, Created: now, Updated: now}
	s.games[gs.ID] = gs
	s.codes[gs.Code] = gs.ID
	s.replyLocked(gs)
	finished := s.finishLocked(gs)
	cp := gs.copy()
	s.mu.Unlock()

	log.Info().Str("game", gs.ID).Str("code", gs.Code).Str("kind", string(kind)).
		Int("piles", cp.Game.NumPiles()).Str("opener", opener.String()).Msg("game created")
	if finished != nil {
		s.record(ctx, *finished)
	}
	return cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	return gs.copy(), true
}

// GetByCode looks a game up by its join code.
func (s *Service) GetByCode(code string) (*Session, bool) {
	s.mu.Lock()
	id, ok := s.codes[normalizeCode(code)]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.Get(id)
}

// Play applies the human's move and, if the game goes on, the computer's
// reply. Subscribers get one update for the whole exchange.
func (s *Service) Play(ctx context.Context, id, player string, m domain.Move) (*Session, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !gs.PlayableBy(player) {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if gs.Game.IsOver() {
		s.mu.Unlock()
		return nil, domain.ErrGameOver
	}
	if !gs.Game.Turn() {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	if err := gs.Game.Apply(m); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.replyLocked(gs)
	gs.Updated = s.now()

	finished := s.finishLocked(gs)
	cp := gs.copy()
	subs := s.copySubsLocked(id)
	s.mu.Unlock()

	if finished != nil {
		s.record(ctx, *finished)
	}
	s.broadcast(id, subs, cp.update())
	return cp, nil
}

// Undo takes back the human's last move together with the computer's
// answer to it.
func (s *Service) Undo(id, player string) (*Session, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !gs.PlayableBy(player) {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if gs.Recorded {
		s.mu.Unlock()
		return nil, domain.ErrGameOver
	}
	if humanMoves(gs.Game) == 0 {
		s.mu.Unlock()
		return nil, ErrNothingToUndo
	}
	gs.Game.Undo()
	for !gs.Game.Turn() && gs.Game.Moves() > 0 {
		gs.Game.Undo()
	}
	s.replyLocked(gs)
	gs.Updated = s.now()

	cp := gs.copy()
	subs := s.copySubsLocked(id)
	s.mu.Unlock()

	log.Debug().Str("game", id).Int("moves", cp.Game.Moves()).Msg("undo")
	s.broadcast(id, subs, cp.update())
	return cp, nil
}

// Hint returns the move the solver would play for the human.
func (s *Service) Hint(id string) (domain.Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Move{}, ErrNotFound
	}
	if !gs.Game.IsOver() && !gs.Game.Turn() {
		return domain.Move{}, ErrNotYourTurn
	}
	return domain.OptimalMove(gs.Game)
}

// Stats reports aggregate results for a kind.
func (s *Service) Stats(ctx context.Context, kind domain.Kind) (store.Stats, error) {
	if _, ok := domain.RulesFor(kind); !ok {
		return store.Stats{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.store.Stats(ctx, kind)
}

// Recent lists the latest finished games.
func (s *Service) Recent(ctx context.Context, limit int) ([]store.Result, error) {
	return s.store.Recent(ctx, limit)
}

// Prune drops games idle since before cutoff and closes their subscribers.
func (s *Service) Prune(cutoff time.Time) int {
	s.mu.Lock()
	var dropped []*subscriber
	n := 0
	for id, gs := range s.games {
		if !gs.Updated.Before(cutoff) {
			continue
		}
		delete(s.games, id)
		delete(s.codes, gs.Code)
		for sub := range s.subs[id] {
			dropped = append(dropped, sub)
		}
		delete(s.subs, id)
		n++
	}
	s.mu.Unlock()

	for _, sub := range dropped {
		sub.close()
	}
	if n > 0 {
		log.Info().Int("games", n).Msg("pruned idle games")
	}
	return n
}

// replyLocked lets the computer move whenever it holds the turn. The
// solver runs exactly once per human move.
func (s *Service) replyLocked(gs *Session) {
	if gs.Game.IsOver() || gs.Game.Turn() {
		return
	}
	m, err := domain.OptimalMove(gs.Game)
	if err != nil {
		return
	}
	if err := gs.Game.Apply(m); err != nil {
		// the solver only proposes legal moves
		panic(fmt.Sprintf("app: solver move %v rejected: %v", m, err))
	}
	log.Debug().Str("game", gs.ID).Int("pile", m.Pile).Int("amount", m.Amount).
		Int("grundy", gs.Game.Grundy()).Msg("computer moved")
}

// finishLocked marks a finished game as recorded and returns the result to
// write, or nil if there is nothing new to record.
func (s *Service) finishLocked(gs *Session) *store.Result {
	w, over := gs.Game.Winner()
	if !over || gs.Recorded {
		return nil
	}
	gs.Recorded = true
	return &store.Result{
		GameID:     gs.ID,
		Kind:       gs.Game.Kind(),
		Winner:     w,
		Moves:      gs.Game.Moves(),
		FinishedAt: gs.Updated,
	}
}

func (s *Service) record(ctx context.Context, r store.Result) {
	log.Info().Str("game", r.GameID).Str("kind", string(r.Kind)).Str("winner", r.Winner.String()).
		Int("moves", r.Moves).Msg("game finished")
	if err := s.store.RecordResult(ctx, r); err != nil {
		log.Error().Err(err).Str("game", r.GameID).Msg("record result")
	}
}

// humanMoves counts the human's moves in g's history. The turn flag flips
// on every move, so the opener follows from the current turn and parity.
func humanMoves(g *domain.Game) int {
	n := g.Moves()
	computerOpened := g.Turn() == (n%2 == 1)
	if computerOpened {
		return n / 2
	}
	return (n + 1) / 2
}

func (s *Service) uniqueCodeLocked() string {
	for {
		c := newCode()
		if _, taken := s.codes[c]; !taken {
			return c
		}
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an
// unsubscribe func; the channel is closed on unsubscribe, when ctx ends,
// or when the subscriber falls behind.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Update, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan Update, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// broadcast fans an update out; slow subscribers are closed and dropped
// rather than allowed to block the game.
func (s *Service) broadcast(id string, subs map[*subscriber]struct{}, u Update) {
	var toDrop []*subscriber
	for sub := range subs {
		if !sub.send(u) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
