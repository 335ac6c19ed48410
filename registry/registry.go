// Package registry implements the Category Registry (C8): a mapping from
// (category number, edition) to a loaded schema.Category, supporting
// multiple simultaneously registered editions and a plugin hook for BDS
// registers whose semantics a schema-declared bitfield layout cannot
// express.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-asterix/asterix/schema"
)

// BDSPlugin decodes a BDS register's 7-byte payload beyond what a
// schema-declared bit-field layout can express (e.g. semantics that
// depend on aircraft type or prior register state). Registered plugins
// are consulted by formatdec callers that opt into code-level BDS
// decoding; the core's schema-driven BDS decoder never calls this itself.
type BDSPlugin func(register byte, payload []byte) (map[string]interface{}, error)

// Edition is one registered (category, edition) entry.
type Edition struct {
	Category    *schema.Category
	Fingerprint uint64
}

// Registry is the read side of the Category Registry: safe for concurrent
// lookups from multiple decode goroutines provided registration happens
// only at startup, or is externally serialized against in-flight decodes,
// per spec §5 and §4.8.
type Registry struct {
	mu sync.RWMutex

	// editions maps category number to every registered edition for
	// that category, in registration order.
	editions map[int][]*Edition
	// latest maps category number to the most recently registered
	// edition's Category.Edition string, for Lookup-by-number.
	latest map[int]string

	bdsPlugins map[string]BDSPlugin
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		editions:   map[int][]*Edition{},
		latest:     map[int]string{},
		bdsPlugins: map[string]BDSPlugin{},
	}
}

// Register adds cat to the registry. Re-registering the same
// (category, edition) pair replaces the prior entry, matching spec §4.8's
// "re-registration replaces the prior entry". A registration whose
// Fingerprint matches an already-registered edition for the same category
// is a no-op beyond updating "latest", since the content is unchanged.
func (r *Registry) Register(cat *schema.Category) error {
	if cat == nil {
		return fmt.Errorf("registry: nil category")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fp := cat.Fingerprint()
	list := r.editions[cat.Number]
	for i, e := range list {
		if e.Category.Edition == cat.Edition {
			list[i] = &Edition{Category: cat, Fingerprint: fp}
			r.latest[cat.Number] = cat.Edition
			return nil
		}
	}
	r.editions[cat.Number] = append(list, &Edition{Category: cat, Fingerprint: fp})
	r.latest[cat.Number] = cat.Edition
	return nil
}

// Lookup returns the most recently registered edition for category, or
// false if none is registered.
func (r *Registry) Lookup(category int) (*schema.Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	edition, ok := r.latest[category]
	if !ok {
		return nil, false
	}
	return r.lookupEditionLocked(category, edition)
}

// LookupEdition returns a specific registered edition of category, or
// false if that (category, edition) pair was never registered.
func (r *Registry) LookupEdition(category int, edition string) (*schema.Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupEditionLocked(category, edition)
}

func (r *Registry) lookupEditionLocked(category int, edition string) (*schema.Category, bool) {
	for _, e := range r.editions[category] {
		if e.Category.Edition == edition {
			return e.Category, true
		}
	}
	return nil, false
}

// ListEntry summarizes one registered edition for List.
type ListEntry struct {
	Category    int
	Edition     string
	Fingerprint uint64
	IsLatest    bool
}

// List returns every registered (category, edition) pair, sorted by
// category number then edition string.
func (r *Registry) List() []ListEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ListEntry
	for cat, list := range r.editions {
		for _, e := range list {
			out = append(out, ListEntry{
				Category:    cat,
				Edition:     e.Category.Edition,
				Fingerprint: e.Fingerprint,
				IsLatest:    r.latest[cat] == e.Category.Edition,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Edition < out[j].Edition
	})
	return out
}

// RegisterBDSPlugin registers a code-level BDS decoder for the given
// register name (matching schema.BDSRegister.Name), for embedders whose
// BDS semantics a Fixed-style bit-field layout cannot express.
func (r *Registry) RegisterBDSPlugin(registerName string, plugin BDSPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bdsPlugins[registerName] = plugin
}

// BDSPlugin returns the plugin registered for registerName, if any.
func (r *Registry) BDSPlugin(registerName string) (BDSPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bdsPlugins[registerName]
	return p, ok
}
