package codes

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/rendiciones/internal/domain"
	"gopkg.in/yaml.v3"
)

// StaticSource serves code lists held in memory, typically loaded from a
// YAML file keyed by code type:
//
//	dimension:
//	  - code: "100"
//	    name: Administracion
type StaticSource struct {
	lists map[domain.CodeType][]domain.CodeEntry
}

// NewStaticSource wraps lists.
func NewStaticSource(lists map[domain.CodeType][]domain.CodeEntry) *StaticSource {
	if lists == nil {
		lists = make(map[domain.CodeType][]domain.CodeEntry)
	}
	return &StaticSource{lists: lists}
}

// ParseYAML decodes code lists from data.
func ParseYAML(data []byte) (*StaticSource, error) {
	var lists map[domain.CodeType][]domain.CodeEntry
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("decode code lists: %w", err)
	}
	return NewStaticSource(lists), nil
}

// LoadYAML reads code lists from the file at path.
func LoadYAML(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read code lists %q: %w", path, err)
	}
	return ParseYAML(data)
}

// ListCodes returns every code of type t. Unknown types yield an empty list.
func (s *StaticSource) ListCodes(ctx context.Context, t domain.CodeType) ([]domain.CodeEntry, error) {
	return append([]domain.CodeEntry(nil), s.lists[t]...), nil
}
