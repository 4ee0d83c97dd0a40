package header

import (
	"context"
	"fmt"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/rs/zerolog"
)

// Tab selects one area of the workspace.
type Tab string

const (
	TabHeader Tab = "header"
	TabLines  Tab = "lines"
	TabTaxes  Tab = "taxes"
)

// Workspace groups the header editor and the line and tax editors of one
// document.
type Workspace struct {
	DocumentID string
	Header     *Editor
	Lines      *RowEditor[domain.LineItem]
	Taxes      *RowEditor[domain.TaxEntry]

	tab Tab
}

// OpenWorkspace loads the header, lines and taxes of documentID. opts
// configure the header editor.
func OpenWorkspace(ctx context.Context, headers backend.Headers, documentID string, log zerolog.Logger, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		DocumentID: documentID,
		Header:     NewEditor(headers, log.With().Str("document_id", documentID).Logger(), opts...),
		Lines:      NewLineEditor(headers, documentID),
		Taxes:      NewTaxEditor(headers, documentID),
		tab:        TabHeader,
	}

	if err := w.Header.Load(ctx, documentID); err != nil {
		return nil, err
	}
	if err := w.Lines.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	if err := w.Taxes.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	return w, nil
}

// Tab returns the active tab.
func (w *Workspace) Tab() Tab {
	return w.tab
}

// SetTab switches the active tab. Staged edits of other tabs are kept.
func (w *Workspace) SetTab(t Tab) error {
	switch t {
	case TabHeader, TabLines, TabTaxes:
		w.tab = t
		return nil
	}
	return fmt.Errorf("unknown tab %q", t)
}
