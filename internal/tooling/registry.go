package tooling

import (
	"errors"
	"fmt"
	"strings"

	"notelaunch/internal/domain"
)

// ErrUnknownTool is returned by Get when no descriptor has the requested title.
var ErrUnknownTool = errors.New("unknown tool")

// MenuEntry is what a menu-building collaborator needs for one item.
type MenuEntry struct {
	Title   string
	Tooltip string
}

// Registry holds descriptors keyed by title, in declaration order. It is
// read-only after construction, so it is safe to share between goroutines;
// a config reload builds a new Registry instead of editing this one.
type Registry struct {
	order []domain.Descriptor
	index map[string]int
}

// NewRegistry builds a registry from descs. Titles must be non-empty and
// unique, compared case-insensitively.
func NewRegistry(descs ...domain.Descriptor) (*Registry, error) {
	r := &Registry{
		order: make([]domain.Descriptor, 0, len(descs)),
		index: make(map[string]int, len(descs)),
	}
	for i, d := range descs {
		if strings.TrimSpace(d.Title) == "" {
			return nil, fmt.Errorf("tool[%d]: title is required", i)
		}
		key := titleKey(d.Title)
		if _, exists := r.index[key]; exists {
			return nil, fmt.Errorf("tool[%d] %q: duplicate title", i, d.Title)
		}
		r.index[key] = len(r.order)
		r.order = append(r.order, d)
	}
	return r, nil
}

// Get returns the descriptor with the given title.
func (r *Registry) Get(title string) (domain.Descriptor, error) {
	i, ok := r.index[titleKey(title)]
	if !ok {
		return domain.Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownTool, title)
	}
	return r.order[i], nil
}

// Has reports whether a descriptor with the given title exists.
func (r *Registry) Has(title string) bool {
	_, ok := r.index[titleKey(title)]
	return ok
}

// List returns a copy of all descriptors in declaration order.
func (r *Registry) List() []domain.Descriptor {
	out := make([]domain.Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Titles returns the tool titles in declaration order.
func (r *Registry) Titles() []string {
	out := make([]string, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, d.Title)
	}
	return out
}

// Menu returns one entry per tool, in declaration order.
func (r *Registry) Menu() []MenuEntry {
	out := make([]MenuEntry, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, MenuEntry{Title: d.Title, Tooltip: d.Tooltip})
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
