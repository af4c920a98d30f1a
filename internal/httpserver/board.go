// internal/httpserver/board.go
package httpserver

import (
	"sort"
	"sync"

	"github.com/tamzrod/sps30-replicator/internal/poller"
	"github.com/tamzrod/sps30-replicator/internal/publish"
	"github.com/tamzrod/sps30-replicator/internal/status"
)

// UnitView is the API view of one unit.
type UnitView struct {
	Unit     string           `json:"unit"`
	Identity *IdentityView    `json:"identity,omitempty"`
	Health   publish.Health   `json:"health"`
	Reading  *publish.Reading `json:"reading,omitempty"`

	// Cached holds the last reading stored in the cache when the process
	// has no fresh reading of its own yet.
	Cached map[string]string `json:"cached,omitempty"`
}

// IdentityView is the API view of poller.Identity.
type IdentityView struct {
	ProductType string `json:"product_type"`
	Serial      string `json:"serial"`
	Firmware    string `json:"firmware"`
}

type boardEntry struct {
	view   UnitView
	everOK bool
}

// Board holds the latest state of every configured unit.
// Safe for concurrent use.
type Board struct {
	mu    sync.RWMutex
	units map[string]*boardEntry
}

// NewBoard creates a board for the given unit ids, all in unknown health.
func NewBoard(unitIDs ...string) *Board {
	b := &Board{units: make(map[string]*boardEntry, len(unitIDs))}
	for _, id := range unitIDs {
		b.units[id] = &boardEntry{view: UnitView{
			Unit:   id,
			Health: publish.NewHealth(id, status.Snapshot{Health: status.HealthUnknown}),
		}}
	}
	return b
}

// SetIdentity records what was read from the unit's sensor at startup.
func (b *Board) SetIdentity(unit string, id poller.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.units[unit]; ok {
		e.view.Identity = &IdentityView{
			ProductType: id.ProductType,
			Serial:      id.Serial,
			Firmware:    id.Firmware.String(),
		}
	}
}

// UpdateReading stores the latest fresh reading of a unit.
func (b *Board) UpdateReading(r publish.Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.units[r.Unit]; ok {
		e.view.Reading = &r
	}
}

// UpdateHealth stores the latest health of a unit.
func (b *Board) UpdateHealth(h publish.Health) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.units[h.Unit]; ok {
		e.view.Health = h
		if h.HealthCode == status.HealthOK {
			e.everOK = true
		}
	}
}

// Ready reports whether every unit has been healthy at least once.
func (b *Board) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range b.units {
		if !e.everOK {
			return false
		}
	}
	return true
}

// Unit returns a copy of one unit's view.
func (b *Board) Unit(id string) (UnitView, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.units[id]
	if !ok {
		return UnitView{}, false
	}
	return e.view, true
}

// Units returns copies of all unit views ordered by id.
func (b *Board) Units() []UnitView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]UnitView, 0, len(b.units))
	for _, e := range b.units {
		out = append(out, e.view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}
