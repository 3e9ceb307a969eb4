package commands

import (
	"context"
	"sync"

	"github.com/inkwell/inkwell-cli/internal/api"
	"github.com/inkwell/inkwell-cli/internal/models"
	"github.com/inkwell/inkwell-cli/internal/tui/editor"
)

// docSaver binds an autosave controller to one remote document. It tracks
// the base version across writes so the server can detect concurrent edits:
// each successful save advances the base, and a fetch during conflict
// resolution adopts the remote version so a subsequent forced save wins.
type docSaver struct {
	api *api.Client
	id  string

	mu      sync.Mutex
	version int64
}

func newDocSaver(client *api.Client, doc *models.Document) *docSaver {
	return &docSaver{
		api:     client,
		id:      doc.ID,
		version: doc.Version,
	}
}

// Save writes the payload against the current base version.
func (s *docSaver) Save(ctx context.Context, p editor.Payload) error {
	s.mu.Lock()
	base := s.version
	s.mu.Unlock()

	doc, err := s.api.UpdateDocument(ctx, s.id, p.Body, p.Title, base)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.version = doc.Version
	s.mu.Unlock()
	return nil
}

// Load fetches the current remote copy for conflict display and adopts its
// version as the new base, so resolving with the local side overwrites it.
func (s *docSaver) Load(ctx context.Context) (editor.Payload, error) {
	doc, err := s.api.GetDocument(ctx, s.id)
	if err != nil {
		return editor.Payload{}, err
	}

	s.mu.Lock()
	s.version = doc.Version
	s.mu.Unlock()

	return editor.Payload{Title: doc.Title, Body: doc.Body}, nil
}

// Version returns the current base version.
func (s *docSaver) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
