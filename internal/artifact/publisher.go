package artifact

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nhoad/steamnews/internal/domain"
	"github.com/nhoad/steamnews/internal/storage"
)

// Package artifact owns publication of derived documents. Every write goes
// to a scoped temp path first and replaces the stable path with a rename, so
// a concurrent reader observes either the complete prior document or the
// complete new one, never a partial write.

//go:embed index.html.tmpl
var indexTemplate []byte

// indexMarker is the injection point the index template reserves for the
// slim games projection.
const indexMarker = "INSERT_GAMES_HERE"

// writeAtomic writes data to path via a same-directory temp file and rename.
// On any failure the prior artifact at path is left untouched.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// FeedPublisher atomically publishes per-title documents and stamps the
// store only after the replace succeeds.
type FeedPublisher struct {
	dir   string
	store storage.Store
}

// NewFeedPublisher ensures the artifacts directory exists.
func NewFeedPublisher(dir string, store storage.Store) (*FeedPublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	return &FeedPublisher{dir: dir, store: store}, nil
}

// Publish replaces the title's JSON and Atom artifacts and advances
// LastPublishedAt. The Atom feed is the artifact readers subscribe to, so it
// is replaced last and the store is stamped only after that succeeds.
func (p *FeedPublisher) Publish(game domain.Game, atomDoc, jsonDoc []byte, at time.Time) error {
	if err := writeAtomic(DataPath(p.dir, game.AppID), jsonDoc); err != nil {
		return fmt.Errorf("publish json for %d: %w", game.AppID, err)
	}
	if err := writeAtomic(FeedPath(p.dir, game.AppID), atomDoc); err != nil {
		return fmt.Errorf("publish feed for %d: %w", game.AppID, err)
	}
	if p.store != nil {
		if err := p.store.SetLastPublished(game.AppID, at); err != nil {
			return fmt.Errorf("stamp publish time for %d: %w", game.AppID, err)
		}
	}
	return nil
}

// IndexPublisher atomically publishes the aggregate index document.
type IndexPublisher struct {
	dir      string
	template []byte
}

// NewIndexPublisher ensures the artifacts directory exists. A nil template
// uses the embedded default.
func NewIndexPublisher(dir string, template []byte) (*IndexPublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	if template == nil {
		template = indexTemplate
	}
	if !bytes.Contains(template, []byte(indexMarker)) {
		return nil, fmt.Errorf("index template has no %s marker", indexMarker)
	}
	return &IndexPublisher{dir: dir, template: template}, nil
}

// Publish serializes the slim projection of the given games into the index
// template and atomically replaces the aggregate artifact.
func (p *IndexPublisher) Publish(games []domain.Game) error {
	slim := make([]domain.SlimGame, 0, len(games))
	for _, g := range games {
		slim = append(slim, g.Slim())
	}

	payload, err := json.Marshal(slim)
	if err != nil {
		return fmt.Errorf("marshal index projection: %w", err)
	}

	doc := bytes.Replace(p.template, []byte(indexMarker), payload, 1)
	if err := writeAtomic(IndexPath(p.dir), doc); err != nil {
		return fmt.Errorf("publish index: %w", err)
	}
	return nil
}
