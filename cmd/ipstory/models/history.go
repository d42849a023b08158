package models

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"sort"
	"time"

	"github.com/google/uuid"
)

// History is the ordered, timestamp-keyed collection of entries for one
// address. Creation timestamps are strictly unique within a history and
// entries are kept in ascending timestamp order.
//
// Wire format: a JSON object keyed by RFC 3339 timestamps.
type History struct {
	entries []Entry
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Contains reports whether an entry exists at the given timestamp.
func (h *History) Contains(t time.Time) bool {
	i := h.search(t)
	return i < len(h.entries) && h.entries[i].CreatedAt.Equal(t)
}

// Insert places the entry at its creation timestamp, keeping ascending
// order. It reports false if the timestamp slot is already taken; the
// history is left unchanged in that case. The entry must carry a
// creation timestamp.
func (h *History) Insert(e Entry) bool {
	if e.CreatedAt == nil {
		return false
	}
	i := h.search(*e.CreatedAt)
	if i < len(h.entries) && h.entries[i].CreatedAt.Equal(*e.CreatedAt) {
		return false
	}
	h.entries = append(h.entries, Entry{})
	copy(h.entries[i+1:], h.entries[i:])
	h.entries[i] = e
	return true
}

// Remove deletes and returns the entry at the given timestamp.
func (h *History) Remove(t time.Time) (Entry, bool) {
	i := h.search(t)
	if i >= len(h.entries) || !h.entries[i].CreatedAt.Equal(t) {
		return Entry{}, false
	}
	e := h.entries[i]
	h.entries = append(h.entries[:i], h.entries[i+1:]...)
	return e, true
}

// FindByID returns the entry whose identity matches id.
func (h *History) FindByID(id uuid.UUID) (Entry, bool) {
	for _, e := range h.entries {
		if e.ID != nil && *e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// RemoveByID deletes and returns the entry whose identity matches id.
func (h *History) RemoveByID(id uuid.UUID) (Entry, bool) {
	for i, e := range h.entries {
		if e.ID != nil && *e.ID == id {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

// Ascending returns the entries in ascending timestamp order.
func (h *History) Ascending() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Descending returns the entries in descending timestamp order.
func (h *History) Descending() []Entry {
	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// search returns the index of the first entry not before t.
func (h *History) search(t time.Time) int {
	return sort.Search(len(h.entries), func(i int) bool {
		return !h.entries[i].CreatedAt.Before(t)
	})
}

func (h History) MarshalJSON() ([]byte, error) {
	keyed := make(map[string]Entry, len(h.entries))
	for _, e := range h.entries {
		keyed[e.CreatedAt.UTC().Format(time.RFC3339Nano)] = e
	}
	return json.Marshal(keyed)
}

func (h *History) UnmarshalJSON(data []byte) error {
	var keyed map[string]Entry
	if err := json.Unmarshal(data, &keyed); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	entries := make([]Entry, 0, len(keyed))
	for key, e := range keyed {
		t, err := time.Parse(time.RFC3339Nano, key)
		if err != nil {
			return fmt.Errorf("decode history key %q: %w", key, err)
		}
		// The map key is authoritative for ordering.
		if e.CreatedAt == nil || !e.CreatedAt.Equal(t) {
			e.CreatedAt = &t
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(*entries[j].CreatedAt)
	})
	// Distinct key strings can still render the same instant ("Z" vs
	// "+00:00"); timestamps must stay unique.
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.Equal(*entries[i-1].CreatedAt) {
			return fmt.Errorf("decode history: duplicate timestamp %s",
				entries[i].CreatedAt.UTC().Format(time.RFC3339Nano))
		}
	}
	h.entries = entries
	return nil
}

// IpStory is the full history record for one IP address. It is the unit
// of storage: a mutation always loads and saves the story whole.
type IpStory struct {
	IP      netip.Addr `json:"ip"`
	History History    `json:"history"`
}

// NewIpStory creates an empty story for the address.
func NewIpStory(ip netip.Addr) IpStory {
	return IpStory{IP: ip}
}
