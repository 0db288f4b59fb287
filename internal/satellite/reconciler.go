package satellite

import (
	"gnssview/internal/geo"
)

// Renderer owns the handles. The reconciler only decides which satellite
// holds which handle.
type Renderer[H any] interface {
	// Allocate creates a new handle when the free list is empty.
	Allocate() H
	// Reset returns h to its inert state (hidden, origin, no orientation).
	Reset(h H)
	// Move places h for the given satellite.
	Move(h H, p Positioned)
}

// Diff lists the keys touched by one Update.
type Diff struct {
	Added   []Key `json:"added,omitempty"`
	Updated []Key `json:"updated,omitempty"`
	Removed []Key `json:"removed,omitempty"`
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

type entry[H any] struct {
	handle H
	pos    Positioned
}

// Reconciler keeps one handle per visible satellite and recycles the
// handles of satellites that leave view. Active plus free handles never
// shrink until Teardown. Not safe for concurrent use.
type Reconciler[H any] struct {
	renderer Renderer[H]
	pos      Positioner

	observer     geo.Geodetic
	haveObserver bool

	active   map[Key]*entry[H]
	free     []H
	torndown bool
}

func NewReconciler[H any](r Renderer[H], p Positioner) *Reconciler[H] {
	return &Reconciler[H]{renderer: r, pos: p, active: make(map[Key]*entry[H])}
}

// Update applies a full replacement batch.
func (r *Reconciler[H]) Update(batch []Status) Diff {
	var d Diff
	if r.torndown {
		return d
	}
	current := make(map[Key]Status, len(batch))
	for _, s := range batch {
		current[s.Key()] = s
	}

	for _, k := range r.sortedKeys() {
		if _, ok := current[k]; ok {
			continue
		}
		e := r.active[k]
		delete(r.active, k)
		r.renderer.Reset(e.handle)
		r.free = append(r.free, e.handle)
		d.Removed = append(d.Removed, k)
	}

	ordered := make([]Status, 0, len(current))
	for _, s := range current {
		ordered = append(ordered, s)
	}
	sortStatuses(ordered)
	for _, s := range ordered {
		k := s.Key()
		e, ok := r.active[k]
		if ok {
			d.Updated = append(d.Updated, k)
		} else {
			e = &entry[H]{handle: r.take()}
			r.active[k] = e
			d.Added = append(d.Added, k)
		}
		r.place(e, s)
	}
	return d
}

func (r *Reconciler[H]) take() H {
	if n := len(r.free); n > 0 {
		h := r.free[n-1]
		var zero H
		r.free[n-1] = zero
		r.free = r.free[:n-1]
		return h
	}
	return r.renderer.Allocate()
}

func (r *Reconciler[H]) place(e *entry[H], s Status) {
	e.pos = r.pos.Position(s, r.observer, r.haveObserver)
	if e.pos.Degraded {
		r.renderer.Reset(e.handle)
		return
	}
	r.renderer.Move(e.handle, e.pos)
}

// SetObserver moves the observer and repositions every active satellite.
func (r *Reconciler[H]) SetObserver(obs geo.Geodetic) {
	if r.torndown {
		return
	}
	r.observer = obs
	r.haveObserver = true
	for _, k := range r.sortedKeys() {
		e := r.active[k]
		r.place(e, e.pos.Status)
	}
}

// Observer returns the location satellites are positioned from.
func (r *Reconciler[H]) Observer() (geo.Geodetic, bool) { return r.observer, r.haveObserver }

// Positioned returns the active satellites ordered by constellation, PRN.
func (r *Reconciler[H]) Positioned() []Positioned {
	keys := r.sortedKeys()
	out := make([]Positioned, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.active[k].pos)
	}
	return out
}

func (r *Reconciler[H]) Handle(k Key) (H, bool) {
	e, ok := r.active[k]
	if !ok {
		var zero H
		return zero, false
	}
	return e.handle, true
}

func (r *Reconciler[H]) ActiveCount() int { return len(r.active) }
func (r *Reconciler[H]) FreeCount() int   { return len(r.free) }

// Teardown resets every handle and parks it on the free list. Later
// updates are ignored.
func (r *Reconciler[H]) Teardown() {
	if r.torndown {
		return
	}
	for _, k := range r.sortedKeys() {
		e := r.active[k]
		r.renderer.Reset(e.handle)
		r.free = append(r.free, e.handle)
	}
	r.active = make(map[Key]*entry[H])
	r.torndown = true
}

func (r *Reconciler[H]) sortedKeys() []Key {
	keys := make([]Key, 0, len(r.active))
	for k := range r.active {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}
