package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ssk4988/nim/internal/app"
	"github.com/ssk4988/nim/internal/domain"
)

const defaultHeartbeat = 15 * time.Second

type handlers struct {
	svc       *app.Service
	tpl       *templates
	heartbeat time.Duration
}

func (h *handlers) renderBoard(d boardData) []byte {
	return renderTemplate(h.tpl.board, "", d)
}

func writeHTML(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorMessage turns a rejected action into text for the board.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are watching this game"
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNothingToUndo):
		return "Nothing to undo"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, domain.ErrOutOfRange):
		return "No such pile"
	case errors.Is(err, domain.ErrAmountOutOfBounds):
		return "That amount is not allowed"
	case errors.Is(err, domain.ErrPileEmpty):
		return "That pile is empty"
	case errors.Is(err, domain.ErrAmountExceedsPile):
		return "Amount is more than the pile holds"
	default:
		return "Invalid move"
	}
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, renderTemplate(h.tpl.index, "base", variants))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	kind := domain.Kind(r.Form.Get("kind"))
	if kind == "" {
		kind = domain.Nim
	}
	first := domain.ParsePlayer(r.Form.Get("first"))
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.CreateGame(r.Context(), kind, first, pid)
	if errors.Is(err, app.ErrUnknownKind) {
		http.Error(w, "unknown game kind", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("create game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

// join resolves a join code, from the path or the ?code= query.
func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		code = r.URL.Query().Get("code")
	}
	gs, ok := h.svc.GetByCode(code)
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)

	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	log.Debug().Str("game", id).Str("player", pid).Msg("view")
	writeHTML(w, renderTemplate(h.tpl.game, "base", sessionBoard(gs, pid)))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	pile, perr := strconv.Atoi(r.Form.Get("pile"))
	amount, aerr := strconv.Atoi(r.Form.Get("amount"))

	var (
		gs  *app.Session
		err error
	)
	if perr != nil || aerr != nil {
		err = errors.New("malformed move")
	} else {
		m := domain.Move{Pile: pile, Amount: amount}
		gs, err = h.svc.Play(r.Context(), id, pid, m)
		log.Debug().Str("game", id).Str("player", pid).Stringer("move", m).Err(err).Msg("play")
	}
	h.respond(w, r, id, pid, gs, err)
}

func (h *handlers) undo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.Undo(id, pid)
	h.respond(w, r, id, pid, gs, err)
}

func (h *handlers) hint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.svc.Hint(id)
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	d := sessionBoard(gs, playerID(r))
	switch {
	case d.Spectator:
		d.Error = errorMessage(app.ErrNotAPlayer)
	case err != nil:
		d.Error = errorMessage(err)
	case gs.Game.Grundy() == 0:
		d.Hint = fmt.Sprintf("No winning move from here. Take %d from pile %d and wait for a mistake.", m.Amount, m.Pile+1)
	default:
		d.Hint = fmt.Sprintf("Take %d from pile %d.", m.Amount, m.Pile+1)
	}
	writeHTML(w, h.renderBoard(d))
}

// respond renders the board after an action, carrying err as a message.
// A failed action shows the unchanged game.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, id, player string, gs *app.Session, err error) {
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if gs == nil {
		var ok bool
		if gs, ok = h.svc.Get(id); !ok {
			http.NotFound(w, r)
			return
		}
	}
	d := sessionBoard(gs, player)
	if err != nil {
		d.Error = errorMessage(err)
	}
	writeHTML(w, h.renderBoard(d))
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(chi.URLParam(r, "kind"))
	st, err := h.svc.Stats(r.Context(), kind)
	if errors.Is(err, app.ErrUnknownKind) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_kind"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db_error"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("recent")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db_error"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// writeEvent emits one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, event string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(strings.TrimRight(string(payload), "\n"), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flusher, canFlush := w.(http.Flusher)
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" || !canFlush {
		if _, ok := h.svc.Get(id); !ok {
			http.NotFound(w, r)
			return
		}
		setStreamHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}

	// subscribe before reading the board so no move lands in between
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	spectator := !gs.PlayableBy(playerID(r))
	setStreamHeaders(w)
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	// current board first, so a late subscriber starts in sync
	writeEvent(w, "board", h.renderBoard(newBoardData(gs.ID, gs.Code, gs.Game.Snapshot(), spectator)))
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case u, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", h.renderBoard(newBoardData(u.ID, u.Code, u.Snapshot, spectator)))
			flusher.Flush()
		}
	}
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
}

// socket streams JSON updates for a game over a WebSocket. Clients only
// listen; moves still go through the HTTP routes.
func (h *handlers) socket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("game", id).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "game not found")
		return
	}
	defer unsub()

	initial := app.Update{ID: gs.ID, Code: gs.Code, Snapshot: gs.Game.Snapshot()}
	if err := wsjson.Write(ctx, conn, initial); err != nil {
		return
	}
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, h.heartbeat)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case u, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusTryAgainLater, "subscription closed")
				return
			}
			if err := wsjson.Write(ctx, conn, u); err != nil {
				log.Debug().Err(err).Str("game", id).Msg("websocket write")
				return
			}
		}
	}
}
