package codes

import "github.com/dvloznov/rendiciones/internal/domain"

// Names is the description cache of one record: the display name last
// resolved for each of its code fields.
type Names map[domain.CodeType]string

// Get returns the cached name for t.
func (n Names) Get(t domain.CodeType) (string, bool) {
	name, ok := n[t]
	return name, ok
}

// Set stores name for t. A blank name removes the entry.
func (n Names) Set(t domain.CodeType, name string) {
	if name == "" {
		delete(n, t)
		return
	}
	n[t] = name
}

// Invalidate drops the cached name of t and of every type depending on it,
// and returns the dependent types that were cleared.
func (n Names) Invalidate(t domain.CodeType) []domain.CodeType {
	delete(n, t)
	deps := Dependents[t]
	for _, d := range deps {
		delete(n, d)
	}
	return deps
}

// Clone returns an independent copy.
func (n Names) Clone() Names {
	out := make(Names, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}
