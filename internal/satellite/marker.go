package satellite

import (
	"sort"

	"gnssview/internal/geo"
)

// Marker is the in-process handle used when no external renderer is
// attached: a placed point the host can draw or serialize.
type Marker struct {
	ID       int
	Visible  bool
	Position geo.Vec3
	Key      Key
}

// MarkerPool allocates Markers. It is driven by a single Reconciler.
type MarkerPool struct {
	markers []*Marker
}

func (p *MarkerPool) Allocate() *Marker {
	m := &Marker{ID: len(p.markers) + 1}
	p.markers = append(p.markers, m)
	return m
}

func (p *MarkerPool) Reset(m *Marker) {
	*m = Marker{ID: m.ID}
}

func (p *MarkerPool) Move(m *Marker, pos Positioned) {
	m.Visible = true
	m.Position = pos.Scene
	m.Key = pos.Key()
}

// Allocated is the number of markers ever created.
func (p *MarkerPool) Allocated() int { return len(p.markers) }

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
}
