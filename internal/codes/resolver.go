// Package codes resolves short accounting and provider codes to display
// names. A Resolver is owned by one editing session and discarded with it.
package codes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/rs/zerolog"
)

// Dependents lists, per parent code type, the code types whose selection
// becomes invalid when the parent changes.
var Dependents = map[domain.CodeType][]domain.CodeType{
	domain.CodeDimension: {domain.CodeSubcuenta},
}

type typeCache struct {
	mu     sync.Mutex
	loaded bool
	names  map[string]string
	list   []domain.CodeEntry
}

// Resolver caches one full code list per type, fetched on first use.
type Resolver struct {
	source backend.Codes
	log    zerolog.Logger

	mu    sync.Mutex
	types map[domain.CodeType]*typeCache
}

// NewResolver creates an empty per-session cache over source.
func NewResolver(source backend.Codes, log zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		log:    log,
		types:  make(map[domain.CodeType]*typeCache),
	}
}

func (r *Resolver) cacheFor(t domain.CodeType) *typeCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.types[t]
	if !ok {
		c = &typeCache{}
		r.types[t] = c
	}
	return c
}

// load fetches the list for t once. Failures are not cached.
func (r *Resolver) load(ctx context.Context, t domain.CodeType) (*typeCache, error) {
	c := r.cacheFor(t)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c, nil
	}

	entries, err := r.source.ListCodes(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("list %s codes: %w", t, err)
	}

	c.names = make(map[string]string, len(entries))
	for _, e := range entries {
		c.names[strings.TrimSpace(e.Code)] = e.Name
	}
	c.list = entries
	c.loaded = true

	r.log.Debug().Str("code_type", string(t)).Int("count", len(entries)).Msg("Loaded code list")
	return c, nil
}

// Resolve returns the display name of code. Unknown codes, blank codes and
// lookup failures all report absent.
func (r *Resolver) Resolve(ctx context.Context, t domain.CodeType, code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}

	c, err := r.load(ctx, t)
	if err != nil {
		r.log.Warn().Err(err).Str("code_type", string(t)).Str("code", code).Msg("Code lookup failed")
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.names[code]
	return name, ok && name != ""
}

// Entries returns every code of type t sorted by code, for lookup pickers.
func (r *Resolver) Entries(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error) {
	c, err := r.load(ctx, t)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	out := append([]domain.CodeEntry(nil), c.list...)
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Preload fetches the given types up front and returns the first failure.
func (r *Resolver) Preload(ctx context.Context, types ...domain.CodeType) error {
	for _, t := range types {
		if _, err := r.load(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
