// core/source/registry.go

// Package source binds the analysis state of one astronomical object: its
// coordinates and redshift, the observations associated with it, the keyed
// product registry, region matching, and the stored spectral-fit results.
package source

import (
	"fmt"
	"sort"

	"xga-core/products"
	"xga-core/profile"
)

// Combined is the reserved ObsID/instrument pair for merged products built
// from every associated observation.
const Combined = "combined"

// NotAssociatedError: a product or query referenced an observation or
// instrument the source does not know about.
type NotAssociatedError struct {
	ObsID string
	Inst  string
}

func (e *NotAssociatedError) Error() string {
	return fmt.Sprintf("observation %s/%s is not associated with this source", e.ObsID, e.Inst)
}

// NoProductsError: a required product role has no usable candidate at all.
type NoProductsError struct {
	Kind products.Kind
	Key  Key
}

func (e *NoProductsError) Error() string {
	return fmt.Sprintf("no usable %s product for %s/%s/%s", e.Kind, e.Key.ObsID, e.Key.Inst, e.Key.ExtraKey)
}

// Key is the composite registry key. An empty field in a query acts as a
// wildcard; stored keys are always fully populated.
type Key struct {
	ObsID    string
	Inst     string
	ExtraKey string
	Kind     products.Kind
}

// Entry pairs a stored product with its key, for callers that need the key
// context back.
type Entry struct {
	Key     Key
	Product products.Product
}

// Registry is the keyed product store of one source. It is not safe for
// concurrent mutation; the generation pool hands finished products back to a
// single inserting goroutine.
type Registry struct {
	store map[Key]products.Product

	// obs -> instrument set
	assoc map[string]map[string]struct{}

	profiles []*profile.Profile
}

func NewRegistry() *Registry {
	return &Registry{
		store: map[Key]products.Product{},
		assoc: map[string]map[string]struct{}{},
	}
}

// Associate registers an observation and its instruments as belonging to the
// source. Products for unassociated combinations are rejected at insert.
func (r *Registry) Associate(obsID string, insts ...string) {
	set, ok := r.assoc[obsID]
	if !ok {
		set = map[string]struct{}{}
		r.assoc[obsID] = set
	}
	for _, i := range insts {
		set[i] = struct{}{}
	}
}

// Associated reports whether an obs/inst pair is known. The combined
// sentinel is always considered associated; a merged product's real
// constituents were checked when it was built or rediscovered.
func (r *Registry) Associated(obsID, inst string) bool {
	if obsID == Combined {
		return true
	}
	set, ok := r.assoc[obsID]
	if !ok {
		return false
	}
	if inst == Combined {
		return true
	}
	_, ok = set[inst]
	return ok
}

// ObsIDs lists the associated observations, sorted.
func (r *Registry) ObsIDs() []string {
	out := make([]string, 0, len(r.assoc))
	for o := range r.assoc {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Instruments lists the instruments associated under one observation, sorted.
func (r *Registry) Instruments(obsID string) []string {
	var out []string
	for i := range r.assoc[obsID] {
		out = append(out, i)
	}
	sort.Strings(out)
	return out
}

// Insert stores a product under its composite key, rejecting products for
// unassociated observations. Inserting an image or exposure map re-checks
// ratemap derivation for that key: a usable pair always has exactly one
// derived ratemap, and replacing either constituent replaces the ratemap.
func (r *Registry) Insert(p products.Product) error {
	if !r.Associated(p.ObsID(), p.Inst()) {
		return &NotAssociatedError{ObsID: p.ObsID(), Inst: p.Inst()}
	}
	k := Key{ObsID: p.ObsID(), Inst: p.Inst(), ExtraKey: p.StorageKey(), Kind: p.Kind()}
	r.store[k] = p

	if p.Kind() == products.KindImage || p.Kind() == products.KindExpMap {
		r.deriveRateMap(p.ObsID(), p.Inst(), p.StorageKey())
	}
	return nil
}

// deriveRateMap enforces the ratemap invariant for one (obs, inst, key)
// slot: present exactly when a usable image/expmap pair is.
func (r *Registry) deriveRateMap(obsID, inst, extraKey string) {
	rmKey := Key{ObsID: obsID, Inst: inst, ExtraKey: extraKey, Kind: products.KindRateMap}
	img, iok := r.store[Key{ObsID: obsID, Inst: inst, ExtraKey: extraKey, Kind: products.KindImage}].(*products.Image)
	exp, eok := r.store[Key{ObsID: obsID, Inst: inst, ExtraKey: extraKey, Kind: products.KindExpMap}].(*products.ExpMap)

	if !iok || !eok || !img.Usable() || !exp.Usable() {
		delete(r.store, rmKey)
		return
	}
	rm, err := products.NewRateMap(img, exp)
	if err != nil {
		delete(r.store, rmKey)
		return
	}
	r.store[rmKey] = rm
}

// Get returns the product under one fully specified key.
func (r *Registry) Get(k Key) (products.Product, bool) {
	p, ok := r.store[k]
	return p, ok
}

// Has reports whether a usable product exists under the key, which is what
// the generation layer asks before queueing a command.
func (r *Registry) Has(k Key) bool {
	p, ok := r.store[k]
	return ok && p.Usable()
}

// Query returns every product of a kind matching the given selectors; empty
// selector strings match anything. Results are sorted by key for
// deterministic iteration.
func (r *Registry) Query(kind products.Kind, obsID, inst, extraKey string) []Entry {
	var out []Entry
	for k, p := range r.store {
		if k.Kind != kind {
			continue
		}
		if obsID != "" && k.ObsID != obsID {
			continue
		}
		if inst != "" && k.Inst != inst {
			continue
		}
		if extraKey != "" && k.ExtraKey != extraKey {
			continue
		}
		out = append(out, Entry{Key: k, Product: p})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.ObsID != b.ObsID {
			return a.ObsID < b.ObsID
		}
		if a.Inst != b.Inst {
			return a.Inst < b.Inst
		}
		return a.ExtraKey < b.ExtraKey
	})
	return out
}

// FirstUsable returns one usable product matching the selectors, or a
// NoProductsError when there is none.
func (r *Registry) FirstUsable(kind products.Kind, obsID, inst, extraKey string) (products.Product, error) {
	for _, e := range r.Query(kind, obsID, inst, extraKey) {
		if e.Product.Usable() {
			return e.Product, nil
		}
	}
	return nil, &NoProductsError{Kind: kind, Key: Key{ObsID: obsID, Inst: inst, ExtraKey: extraKey, Kind: kind}}
}

// StoreProfile appends a profile to the registry.
func (r *Registry) StoreProfile(p *profile.Profile) {
	r.profiles = append(r.profiles, p)
}

// Profiles returns stored profiles of a kind; the empty kind matches all.
func (r *Registry) Profiles(kind profile.Kind) []*profile.Profile {
	var out []*profile.Profile
	for _, p := range r.profiles {
		if kind == "" || p.Kind() == kind {
			out = append(out, p)
		}
	}
	return out
}

// Disassociate removes an observation. Every product under it goes, and so
// does every combined product and combined profile, since a merge is invalid
// once a constituent is gone. The caller clears fit state separately.
func (r *Registry) Disassociate(obsID string) {
	delete(r.assoc, obsID)
	for k := range r.store {
		if k.ObsID == obsID || k.ObsID == Combined || k.Inst == Combined {
			delete(r.store, k)
		}
	}
	kept := r.profiles[:0]
	for _, p := range r.profiles {
		if p.ObsID() != obsID && p.ObsID() != profile.Combined {
			kept = append(kept, p)
		}
	}
	r.profiles = kept
}

// DisassociateInstrument removes a single obs/inst combination, with the
// same combined-product purge as a full disassociation.
func (r *Registry) DisassociateInstrument(obsID, inst string) {
	if set, ok := r.assoc[obsID]; ok {
		delete(set, inst)
		if len(set) == 0 {
			delete(r.assoc, obsID)
		}
	}
	for k := range r.store {
		if (k.ObsID == obsID && k.Inst == inst) || k.ObsID == Combined || k.Inst == Combined {
			delete(r.store, k)
		}
	}
}
