// Package drafts keeps uncommitted apertura edits keyed by source item so
// work survives leaving and reopening the grid.
package drafts

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/domain"
)

// ErrNotFound is returned by Load when no live draft exists for the key.
var ErrNotFound = errors.New("draft not found")

// Draft is the in-progress state of one grid.
type Draft struct {
	Key     string                 `json:"key"`
	Rows    []domain.AperturaRow   `json:"rows"`
	Names   map[string]codes.Names `json:"names,omitempty"`
	SavedAt time.Time              `json:"savedAt"`
}

// Store persists drafts.
type Store interface {
	Save(ctx context.Context, d *Draft) error
	Load(ctx context.Context, key string) (*Draft, error)
	Clear(ctx context.Context, key string) error
}

func (d *Draft) clone() *Draft {
	cp := *d
	cp.Rows = append([]domain.AperturaRow(nil), d.Rows...)
	if d.Names != nil {
		cp.Names = make(map[string]codes.Names, len(d.Names))
		for id, n := range d.Names {
			cp.Names[id] = n.Clone()
		}
	}
	return &cp
}
