package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/google/uuid"

	"github.com/ssk4988/nim/internal/app"
	"github.com/ssk4988/nim/internal/domain"
)

type templates struct {
	game  *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Nim</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>{{.Title}}</h1>
<p>Join code: <code>{{.Code}}</code></p>
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div sse-swap="board">{{template "board" .}}</div>
</div>
<p><a href="/">New game</a></p>`))
	board := template.Must(template.New("board_only").Parse(boardTemplate))
	return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const indexTemplate = `<h1>Nim</h1>
{{range .}}
<form action="/game" method="post">
  <input type="hidden" name="kind" value="{{.Kind}}">
  <h2>{{.Title}}</h2>
  <p>{{.Blurb}}</p>
  <label><input type="radio" name="first" value="human" checked> I go first</label>
  <label><input type="radio" name="first" value="computer"> Computer goes first</label>
  <button type="submit">Play {{.Title}}</button>
</form>
{{end}}
<form action="/g" method="get">
  <input name="code" placeholder="Join code" maxlength="6">
  <button type="submit">Open</button>
</form>`

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  {{if .Hint}}
  <div class="hint">{{.Hint}}</div>
  {{end}}
  {{range .Piles}}
  <div class="pile">
    <span class="label">Pile {{.Number}}</span>
    <span class="count">{{.Size}}</span>
    {{if $.Playable}}{{if .Size}}
    <form action="/game/{{$.ID}}/play" method="post" hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML">
      <input type="hidden" name="pile" value="{{.Index}}">
      <input type="number" name="amount" value="1" min="1" max="{{.Max}}">
      <button type="submit">Take</button>
    </form>
    {{end}}{{end}}
  </div>
  {{end}}
  <p class="status">{{.Status}}</p>
  {{if .Spectator}}
  <p class="watching">You are watching this game.</p>
  {{else}}
  <form action="/game/{{.ID}}/undo" method="post" hx-post="/game/{{.ID}}/undo" hx-target="#board" hx-swap="outerHTML">
    <button type="submit">Undo</button>
  </form>
  {{end}}
  {{if .Playable}}
  <button hx-get="/game/{{.ID}}/hint" hx-target="#board" hx-swap="outerHTML">Hint</button>
  {{end}}
</div>
`

type variant struct {
	Kind  domain.Kind
	Title string
	Blurb string
}

var variants = []variant{
	{Kind: domain.Nim, Title: "Nim", Blurb: "Take any number of tokens from one pile. Whoever takes the last token wins."},
	{Kind: domain.Marbles, Title: "Marbles", Blurb: "One pile; take one, two or three marbles. Whoever takes the last marble wins."},
}

func titleFor(k domain.Kind) string {
	for _, v := range variants {
		if v.Kind == k {
			return v.Title
		}
	}
	return string(k)
}

type pileView struct {
	Index  int
	Number int
	Size   int
	Max    int
}

type boardData struct {
	ID       string
	Code     string
	Title    string
	Piles    []pileView
	Playable bool
	// Spectator is set for viewers who do not own the game.
	Spectator bool
	Status    string
	Error     string
	Hint      string
}

// sessionBoard renders gs as seen by player.
func sessionBoard(gs *app.Session, player string) boardData {
	return newBoardData(gs.ID, gs.Code, gs.Game.Snapshot(), !gs.PlayableBy(player))
}

func newBoardData(id, code string, snap domain.Snapshot, spectator bool) boardData {
	d := boardData{
		ID:        id,
		Code:      code,
		Title:     titleFor(snap.Kind),
		Playable:  !spectator && !snap.Over && snap.Turn,
		Spectator: spectator,
	}
	for i, p := range snap.Piles {
		d.Piles = append(d.Piles, pileView{Index: i, Number: i + 1, Size: p, Max: snap.MaxTake[i]})
	}
	switch {
	case spectator && snap.Over && snap.Winner == domain.Human.String():
		d.Status = "The player took the last token and won."
	case spectator && snap.Over:
		d.Status = "The computer took the last token and won."
	case spectator:
		d.Status = "Waiting for the player to move."
	case snap.Over && snap.Winner == domain.Human.String():
		d.Status = "You took the last token. You win!"
	case snap.Over:
		d.Status = "The computer took the last token. You lose."
	case snap.Last != nil && snap.Turn:
		d.Status = fmt.Sprintf("Computer took %d from pile %d. Your move.", snap.Last.Amount, snap.Last.Pile+1)
	default:
		d.Status = "Your move."
	}
	return d
}

// playerID reads the player cookie without issuing one.
func playerID(r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil {
		return c.Value
	}
	return ""
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		return c.Value
	}
	// Generate UUIDv4 for player ID
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
	return v
}
