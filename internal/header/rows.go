package header

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/textclean"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned for ids not in the current list.
var ErrItemNotFound = errors.New("item not found")

// RowStore binds a RowEditor to the backend operations of one item kind.
type RowStore[T any] struct {
	List   func(ctx context.Context, documentID string) ([]T, error)
	Update func(ctx context.Context, item T) (*T, error)
	Delete func(ctx context.Context, documentID, id string) error
	ID     func(T) string
	// Set stages value into one named field of item.
	Set func(item *T, field, value string) error
	// Prepare runs on the staged copy right before it is submitted.
	Prepare func(T) T
}

// RowEditor manages a document's list of line items or taxes. Each item is
// edited on a staged copy and committed with a single update, after which
// the list is reloaded.
type RowEditor[T any] struct {
	store      RowStore[T]
	documentID string

	mu     sync.Mutex
	items  []T
	staged map[string]T
	busy   map[string]bool
}

// NewRowEditor creates an editor for documentID's items.
func NewRowEditor[T any](store RowStore[T], documentID string) *RowEditor[T] {
	return &RowEditor[T]{
		store:      store,
		documentID: documentID,
		staged:     make(map[string]T),
		busy:       make(map[string]bool),
	}
}

// Refresh reloads the item list.
func (r *RowEditor[T]) Refresh(ctx context.Context) error {
	items, err := r.store.List(ctx, r.documentID)
	if err != nil {
		return fmt.Errorf("list items of %s: %w", r.documentID, err)
	}
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	return nil
}

// Items returns the last loaded list.
func (r *RowEditor[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}

func (r *RowEditor[T]) findLocked(id string) (T, bool) {
	for _, it := range r.items {
		if r.store.ID(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Begin stages a copy of item id. Beginning an item already staged keeps
// its pending edits.
func (r *RowEditor[T]) Begin(id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.staged[id]; ok {
		return st, nil
	}
	it, ok := r.findLocked(id)
	if !ok {
		return it, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	r.staged[id] = it
	return it, nil
}

// Staged returns the pending copy of id.
func (r *RowEditor[T]) Staged(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.staged[id]
	return st, ok
}

// Stage sets one field of the staged copy of id, beginning it if needed.
func (r *RowEditor[T]) Stage(id, field, value string) error {
	if _, err := r.Begin(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.staged[id]
	if err := r.store.Set(&st, field, value); err != nil {
		return err
	}
	r.staged[id] = st
	return nil
}

// Discard drops the staged copy of id.
func (r *RowEditor[T]) Discard(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.staged, id)
}

// Commit submits the staged copy of id and reloads the list. On failure the
// staged copy is kept.
func (r *RowEditor[T]) Commit(ctx context.Context, id string) (*T, error) {
	r.mu.Lock()
	st, ok := r.staged[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing staged for %s", ErrItemNotFound, id)
	}
	if r.busy[id] {
		r.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	r.busy[id] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.busy, id)
		r.mu.Unlock()
	}()

	if r.store.Prepare != nil {
		st = r.store.Prepare(st)
	}
	saved, err := r.store.Update(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}

	r.mu.Lock()
	delete(r.staged, id)
	r.mu.Unlock()

	if err := r.Refresh(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

// Delete removes item id and reloads the list.
func (r *RowEditor[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if r.busy[id] {
		r.mu.Unlock()
		return ErrSaveInFlight
	}
	r.busy[id] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.busy, id)
		r.mu.Unlock()
	}()

	if err := r.store.Delete(ctx, r.documentID, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	r.mu.Lock()
	delete(r.staged, id)
	r.mu.Unlock()
	return r.Refresh(ctx)
}

// NewLineEditor edits a document's line items.
func NewLineEditor(headers backend.Headers, documentID string) *RowEditor[domain.LineItem] {
	return NewRowEditor(RowStore[domain.LineItem]{
		List:   headers.ListLines,
		Update: headers.UpdateLine,
		Delete: headers.DeleteLine,
		ID:     func(l domain.LineItem) string { return l.ID },
		Set:    SetLineField,
		Prepare: func(l domain.LineItem) domain.LineItem {
			l.Descripcion = textclean.Clean(l.Descripcion)
			return l
		},
	}, documentID)
}

// NewTaxEditor edits a document's tax entries.
func NewTaxEditor(headers backend.Headers, documentID string) *RowEditor[domain.TaxEntry] {
	return NewRowEditor(RowStore[domain.TaxEntry]{
		List:   headers.ListTaxes,
		Update: headers.UpdateTax,
		Delete: headers.DeleteTax,
		ID:     func(t domain.TaxEntry) string { return t.ID },
		Set:    SetTaxField,
		Prepare: func(t domain.TaxEntry) domain.TaxEntry {
			t.Descripcion = textclean.Clean(t.Descripcion)
			return t
		},
	}, documentID)
}

// SetLineField stages value into a line item field. Amounts must parse.
func SetLineField(l *domain.LineItem, field, value string) error {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "descripcion":
		l.Descripcion = value
	case "codigoproducto":
		l.CodigoProducto = strings.TrimSpace(value)
	case "cantidad":
		return setAmount(&l.Cantidad, value)
	case "preciounitario":
		return setAmount(&l.PrecioUnitario, value)
	case "importe":
		return setAmount(&l.Importe, value)
	default:
		return fmt.Errorf("%w: line field %q", ErrUnknownField, field)
	}
	return nil
}

// SetTaxField stages value into a tax entry field. Amounts must parse.
func SetTaxField(t *domain.TaxEntry, field, value string) error {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "codigo":
		t.Codigo = strings.TrimSpace(value)
	case "descripcion":
		t.Descripcion = value
	case "base":
		return setAmount(&t.Base, value)
	case "alicuota":
		return setAmount(&t.Alicuota, value)
	case "importe":
		return setAmount(&t.Importe, value)
	default:
		return fmt.Errorf("%w: tax field %q", ErrUnknownField, field)
	}
	return nil
}

func setAmount(dst *decimal.Decimal, value string) error {
	v, err := parseAmount(value)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
