// Package ledger keeps the community "ghost ledger" of scanned transactions.
// Entries live in memory only; the oldest are dropped once the ledger is full.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/ghostscan/pkg/qr"
)

// DefaultCapacity is the number of entries kept when none is given.
const DefaultCapacity = 500

// Entry is one recorded scan.
type Entry struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id"`
	Payload    string      `json:"payload"`
	Location   qr.Location `json:"location"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// Ledger is a bounded, append-only log of entries.
type Ledger struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time

	// Called after each Record, outside the lock.
	OnRecord func(Entry)
}

// New creates a ledger holding at most capacity entries.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Record appends a decoded symbol and returns the stored entry.
func (l *Ledger) Record(sessionID string, res qr.Result) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Payload:    res.Text,
		Location:   res.Location,
		RecordedAt: l.now().UTC(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[1:]
	}
	cb := l.OnRecord
	l.mu.Unlock()

	if cb != nil {
		cb(e)
	}
	return e
}

// List returns a copy of all entries, oldest first.
func (l *Ledger) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Get returns the entry with the given id.
func (l *Ledger) Get(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
