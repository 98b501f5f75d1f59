// Package history keeps the most recent successful lookups for the session.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yegors/wmo-decoder/internal/wxcode"
)

// DefaultCapacity is how many lookups are retained
const DefaultCapacity = 5

// Keeper is a bounded, most-recent-first list of history entries
type Keeper struct {
	mu       sync.RWMutex
	entries  []wxcode.HistoryEntry
	capacity int
	newID    func() string
}

// NewKeeper creates a keeper holding at most capacity entries
func NewKeeper(capacity int) *Keeper {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Keeper{
		entries:  make([]wxcode.HistoryEntry, 0, capacity+1),
		capacity: capacity,
		newID:    timeOrderedID,
	}
}

// timeOrderedID returns a UUIDv7, whose leading bits encode the creation time
func timeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Add prepends a new entry for record and evicts the oldest beyond capacity
func (k *Keeper) Add(record *wxcode.Record, now time.Time) wxcode.HistoryEntry {
	entry := wxcode.HistoryEntry{
		Record:    *record.Clone(),
		ID:        k.newID(),
		CreatedAt: now,
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.entries = append([]wxcode.HistoryEntry{entry}, k.entries...)
	if len(k.entries) > k.capacity {
		k.entries = k.entries[:k.capacity]
	}
	return cloneEntry(entry)
}

// List returns copies of all entries, newest first
func (k *Keeper) List() []wxcode.HistoryEntry {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]wxcode.HistoryEntry, len(k.entries))
	for i, e := range k.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Get returns a copy of the entry with the given id
func (k *Keeper) Get(id string) (wxcode.HistoryEntry, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, e := range k.entries {
		if e.ID == id {
			return cloneEntry(e), true
		}
	}
	return wxcode.HistoryEntry{}, false
}

// Len returns the number of retained entries
func (k *Keeper) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// Capacity returns the maximum number of retained entries
func (k *Keeper) Capacity() int {
	return k.capacity
}

func cloneEntry(e wxcode.HistoryEntry) wxcode.HistoryEntry {
	e.Record = *e.Record.Clone()
	return e
}
