package feed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"text/template"
	"time"

	"github.com/nhoad/steamnews/internal/domain"
)

// Package feed turns a game record plus its transient news items into the
// published document texts. Rendering is pure: no I/O, no store access.

//go:embed atom.tmpl
var atomTemplate string

// Renderer produces the per-title Atom and JSON documents.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer compiles the embedded Atom template.
func NewRenderer() (*Renderer, error) {
	tmpl := template.New("atom").Funcs(template.FuncMap{
		"isodate": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		// article sanitizes a news body and escapes the resulting HTML for
		// embedding in the XML content element.
		"article":   func(body string) string { return html.EscapeString(Sanitize(body)) },
		"image":     func(body string) string { return FirstImage(Sanitize(body)) },
		"xmlescape": html.EscapeString,
	})

	tmpl, err := tmpl.Parse(atomTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse atom template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Atom renders the Atom feed document for a game with news attached.
func (r *Renderer) Atom(game domain.Game, updateTime time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, struct {
		Game       domain.Game
		UpdateTime time.Time
	}{Game: game, UpdateTime: updateTime})
	if err != nil {
		return nil, fmt.Errorf("render atom for %d: %w", game.AppID, err)
	}
	return buf.Bytes(), nil
}

// JSON renders the per-title JSON document published next to the Atom feed.
func (r *Renderer) JSON(game domain.Game, updateTime time.Time) ([]byte, error) {
	doc := struct {
		AppID       int               `json:"appid"`
		Name        string            `json:"name"`
		NewsItems   []domain.NewsItem `json:"newsitems"`
		UpdateTime  int64             `json:"updatetime"`
		Windows     bool              `json:"windows"`
		Mac         bool              `json:"mac"`
		Linux       bool              `json:"linux"`
		EarlyAccess bool              `json:"early_access"`
	}{
		AppID:       game.AppID,
		Name:        game.Name,
		NewsItems:   game.NewsItems,
		UpdateTime:  updateTime.Unix(),
		Windows:     game.Windows,
		Mac:         game.Mac,
		Linux:       game.Linux,
		EarlyAccess: game.EarlyAccess,
	}
	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("render json for %d: %w", game.AppID, err)
	}
	return out, nil
}
