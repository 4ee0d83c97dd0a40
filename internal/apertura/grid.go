// Package apertura implements the split grid that decomposes one source
// item total into categorized rows and only saves once they reconcile.
package apertura

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/drafts"
	"github.com/dvloznov/rendiciones/internal/textclean"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type gridRow struct {
	row   domain.AperturaRow
	names codes.Names
}

// Grid is one editing session over a source item's decomposition.
type Grid struct {
	source   domain.SourceItem
	saver    backend.Decompositions
	drafts   drafts.Store
	resolver *codes.Resolver
	log      zerolog.Logger
	newID    func() string

	mu       sync.Mutex
	rows     []*gridRow
	baseline []domain.AperturaRow
	restored bool
	saving   bool
}

// Option configures a Grid.
type Option func(*Grid)

// WithDrafts keeps uncommitted edits in store under the source item id.
func WithDrafts(store drafts.Store) Option {
	return func(g *Grid) { g.drafts = store }
}

// WithResolver enables code descriptions.
func WithResolver(r *codes.Resolver) Option {
	return func(g *Grid) { g.resolver = r }
}

// WithLogger sets the grid logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Grid) { g.log = log }
}

// Open starts a session. Rows come from a stored draft when one exists,
// otherwise from existing, otherwise one row seeded from source.
func Open(ctx context.Context, saver backend.Decompositions, source domain.SourceItem, existing []domain.AperturaRow, opts ...Option) *Grid {
	g := &Grid{
		source: source,
		saver:  saver,
		log:    zerolog.Nop(),
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With().Str("source_id", source.ID).Logger()

	initial := existing
	if len(initial) == 0 {
		initial = []domain.AperturaRow{g.seedRow()}
	}

	for _, r := range initial {
		if r.ID == "" {
			r.ID = g.newID()
		}
		g.baseline = append(g.baseline, r)
	}
	g.resetRowsLocked()

	g.restoreDraft(ctx)
	return g
}

func (g *Grid) seedRow() domain.AperturaRow {
	return domain.AperturaRow{
		ID:             g.newID(),
		TipoProducto:   g.source.TipoProducto,
		CodigoProducto: g.source.CodigoProducto,
		NetoGravado:    g.source.NetoGravado,
		Exento:         g.source.Exento,
		Impuestos:      g.source.Impuestos,
		Observacion:    g.source.Observacion,
	}
}

func (g *Grid) restoreDraft(ctx context.Context) {
	if g.drafts == nil {
		return
	}
	d, err := g.drafts.Load(ctx, g.source.ID)
	if errors.Is(err, drafts.ErrNotFound) {
		return
	}
	if err != nil {
		g.log.Warn().Err(err).Msg("Could not load apertura draft, starting from saved rows")
		return
	}
	if len(d.Rows) == 0 {
		return
	}

	g.rows = g.rows[:0]
	for _, r := range d.Rows {
		names := d.Names[r.ID]
		if names == nil {
			names = codes.Names{}
		}
		g.rows = append(g.rows, &gridRow{row: r, names: names})
	}
	g.restored = true
	g.log.Info().Int("rows", len(d.Rows)).Time("saved_at", d.SavedAt).Msg("Restored apertura draft")
}

// persistDraftLocked stores the current rows. Failures are logged only;
// the edit itself has already been applied.
func (g *Grid) persistDraftLocked(ctx context.Context) {
	if g.drafts == nil {
		return
	}
	d := &drafts.Draft{
		Key:   g.source.ID,
		Rows:  g.rowsLocked(),
		Names: make(map[string]codes.Names, len(g.rows)),
	}
	for _, r := range g.rows {
		if len(r.names) > 0 {
			d.Names[r.row.ID] = r.names.Clone()
		}
	}
	if err := g.drafts.Save(ctx, d); err != nil {
		g.log.Warn().Err(err).Msg("Could not save apertura draft")
	}
}

func (g *Grid) clearDraft(ctx context.Context) {
	if g.drafts == nil {
		return
	}
	if err := g.drafts.Clear(ctx, g.source.ID); err != nil {
		g.log.Warn().Err(err).Msg("Could not clear apertura draft")
	}
}

// Source returns the source item being decomposed.
func (g *Grid) Source() domain.SourceItem {
	return g.source
}

// Restored reports whether the grid was opened from a draft.
func (g *Grid) Restored() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restored
}

// Rows returns a copy of the current rows in display order.
func (g *Grid) Rows() []domain.AperturaRow {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rowsLocked()
}

func (g *Grid) rowsLocked() []domain.AperturaRow {
	out := make([]domain.AperturaRow, len(g.rows))
	for i, r := range g.rows {
		out[i] = r.row
	}
	return out
}

// Len returns the row count.
func (g *Grid) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rows)
}

func (g *Grid) findLocked(id string) (int, *gridRow) {
	for i, r := range g.rows {
		if r.row.ID == id {
			return i, r
		}
	}
	return -1, nil
}

// Row returns the row with id.
func (g *Grid) Row(id string) (domain.AperturaRow, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, r := g.findLocked(id)
	if r == nil {
		return domain.AperturaRow{}, false
	}
	return r.row, true
}

// AddRow appends a zero row and returns its id.
func (g *Grid) AddRow(ctx context.Context) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.newID()
	g.rows = append(g.rows, &gridRow{row: domain.AperturaRow{ID: id}, names: codes.Names{}})
	g.persistDraftLocked(ctx)
	return id
}

// DeleteRow removes a row. The last remaining row cannot be removed.
func (g *Grid) DeleteRow(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, r := g.findLocked(id)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	if len(g.rows) <= 1 {
		return ErrMinimumRows
	}
	g.rows = append(g.rows[:i], g.rows[i+1:]...)
	g.persistDraftLocked(ctx)
	return nil
}

// UpdateCell sets one field of a row. Code fields drop their cached name;
// a dimension change also clears the dependent subcuenta and its name.
func (g *Grid) UpdateCell(ctx context.Context, rowID string, f Field, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, r := g.findLocked(rowID)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	if err := setValue(&r.row, f, value); err != nil {
		return err
	}

	if ct, ok := f.CodeType(); ok {
		for _, dep := range r.names.Invalidate(ct) {
			if df, ok := fieldForCode(dep); ok {
				_ = setValue(&r.row, df, "")
			}
		}
	}

	g.persistDraftLocked(ctx)
	return nil
}

// Describe returns the display name of a code field, resolving it on first use.
func (g *Grid) Describe(ctx context.Context, rowID string, f Field) (string, bool) {
	ct, ok := f.CodeType()
	if !ok {
		return "", false
	}

	g.mu.Lock()
	_, r := g.findLocked(rowID)
	if r == nil {
		g.mu.Unlock()
		return "", false
	}
	if name, ok := r.names.Get(ct); ok {
		g.mu.Unlock()
		return name, true
	}
	code := Value(r.row, f)
	g.mu.Unlock()

	if g.resolver == nil || code == "" {
		return "", false
	}
	name, ok := g.resolver.Resolve(ctx, ct, code)
	if !ok {
		return "", false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// the code may have been edited while resolving
	if _, r := g.findLocked(rowID); r != nil && Value(r.row, f) == code {
		r.names.Set(ct, name)
	}
	return name, true
}

// CachedName returns the cached description of a code field without lookup.
func (g *Grid) CachedName(rowID string, f Field) (string, bool) {
	ct, ok := f.CodeType()
	if !ok {
		return "", false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, r := g.findLocked(rowID)
	if r == nil {
		return "", false
	}
	return r.names.Get(ct)
}

// Lookup lists the codes available for f.
func (g *Grid) Lookup(ctx context.Context, f Field) ([]domain.CodeEntry, error) {
	ct, ok := f.CodeType()
	if !ok || g.resolver == nil {
		return nil, nil
	}
	return g.resolver.Entries(ctx, ct)
}

// Total sums every row.
func (g *Grid) Total() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Sum(g.rowsLocked())
}

// Comparison classifies the current total against the source total.
func (g *Grid) Comparison() Comparison {
	return Compare(g.Total(), g.source.Total)
}

// CanSave reports whether Save would be attempted.
func (g *Grid) CanSave() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.saving && len(g.rows) >= 1 && Compare(Sum(g.rowsLocked()), g.source.Total).Status == StatusEqual
}

// IsDirty reports whether a row differs from its state when the grid opened.
func (g *Grid) IsDirty(rowID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, r := g.findLocked(rowID)
	if r == nil {
		return false
	}
	return g.dirtyLocked(r.row)
}

func (g *Grid) dirtyLocked(r domain.AperturaRow) bool {
	for _, orig := range g.baseline {
		if orig.ID == r.ID {
			return !orig.Equal(r)
		}
	}
	return true
}

func (g *Grid) resetRowsLocked() {
	g.rows = make([]*gridRow, len(g.baseline))
	for i, r := range g.baseline {
		g.rows[i] = &gridRow{row: r, names: codes.Names{}}
	}
}

// DirtyRows lists the ids of modified or added rows.
func (g *Grid) DirtyRows() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []string
	for _, r := range g.rows {
		if g.dirtyLocked(r.row) {
			ids = append(ids, r.row.ID)
		}
	}
	return ids
}

// Save submits every row as the new decomposition of the source item. It
// makes no call unless the totals reconcile.
func (g *Grid) Save(ctx context.Context) error {
	g.mu.Lock()
	if g.saving {
		g.mu.Unlock()
		return ErrSaveInFlight
	}
	if len(g.rows) < 1 {
		g.mu.Unlock()
		return ErrMinimumRows
	}
	rows := g.rowsLocked()
	cmp := Compare(Sum(rows), g.source.Total)
	if cmp.Status != StatusEqual {
		g.mu.Unlock()
		g.log.Warn().
			Str("status", string(cmp.Status)).
			Str("difference", domain.FormatAmount(cmp.Difference)).
			Msg("Apertura save rejected, totals do not reconcile")
		return &DiscrepancyError{
			Status:     cmp.Status,
			GridTotal:  cmp.GridTotal,
			Total:      cmp.SourceTotal,
			Difference: cmp.Difference,
		}
	}
	for i := range rows {
		rows[i].Observacion = textclean.Clean(rows[i].Observacion)
		rows[i].Patente = textclean.Clean(rows[i].Patente)
	}
	g.saving = true
	g.mu.Unlock()

	err := g.saver.SaveDecomposition(ctx, g.source.ID, rows)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.saving = false

	if err != nil {
		g.log.Error().Err(err).Int("rows", len(rows)).Msg("Failed to save apertura")
		return fmt.Errorf("save apertura for %s: %w", g.source.ID, err)
	}

	g.baseline = rows
	for i, r := range rows {
		if i < len(g.rows) && g.rows[i].row.ID == r.ID {
			g.rows[i].row = r
		}
	}
	g.restored = false
	g.clearDraft(ctx)

	g.log.Info().Int("rows", len(rows)).Msg("Apertura saved")
	return nil
}

// Cancel discards uncommitted edits and their draft.
func (g *Grid) Cancel(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetRowsLocked()
	g.restored = false
	g.clearDraft(ctx)
}
