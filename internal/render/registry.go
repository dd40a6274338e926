package render

import (
	"fmt"
	"sort"
	"strings"
)

// Entry registers a renderer under its canonical key and any aliases.
type Entry struct {
	Renderer Renderer
	Aliases  []string
}

// Registry resolves target keys to renderers. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	renderers map[string]Renderer // canonical key -> renderer
	keys      map[string]string   // canonical key or alias -> canonical key
	aliases   map[string][]string // canonical key -> aliases
}

// NewRegistry builds a registry. Keys are case-insensitive; registering
// the same key or alias twice is an error.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		renderers: make(map[string]Renderer, len(entries)),
		keys:      make(map[string]string),
		aliases:   make(map[string][]string),
	}

	claim := func(key, canonical string) error {
		if key == "" {
			return fmt.Errorf("empty target key for %s", canonical)
		}
		if prev, dup := r.keys[key]; dup {
			return fmt.Errorf("target key %q registered by both %s and %s", key, prev, canonical)
		}
		r.keys[key] = canonical
		return nil
	}

	for _, e := range entries {
		if e.Renderer == nil {
			return nil, fmt.Errorf("nil renderer in registry entry")
		}
		canonical := normalizeKey(e.Renderer.Target())
		if err := claim(canonical, canonical); err != nil {
			return nil, err
		}
		r.renderers[canonical] = e.Renderer
		for _, a := range e.Aliases {
			a = normalizeKey(a)
			if err := claim(a, canonical); err != nil {
				return nil, err
			}
			r.aliases[canonical] = append(r.aliases[canonical], a)
		}
		sort.Strings(r.aliases[canonical])
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables; it panics on error.
func MustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Lookup returns the renderer for a key or alias.
func (r *Registry) Lookup(key string) (Renderer, error) {
	canonical, ok := r.keys[normalizeKey(key)]
	if !ok {
		return nil, &UnknownTargetError{Target: key, Known: r.Targets()}
	}
	return r.renderers[canonical], nil
}

// Resolve looks up every key, in order, failing on the first unknown one.
// Keys that resolve to the same renderer are returned once.
func (r *Registry) Resolve(keys ...string) ([]Renderer, error) {
	out := make([]Renderer, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		rn, err := r.Lookup(k)
		if err != nil {
			return nil, err
		}
		if seen[rn.Target()] {
			continue
		}
		seen[rn.Target()] = true
		out = append(out, rn)
	}
	return out, nil
}

// Targets returns the canonical keys in sorted order.
func (r *Registry) Targets() []string {
	out := make([]string, 0, len(r.renderers))
	for k := range r.renderers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Aliases returns the aliases registered for a canonical key.
func (r *Registry) Aliases(target string) []string {
	return append([]string(nil), r.aliases[normalizeKey(target)]...)
}
