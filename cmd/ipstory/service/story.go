package service

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/nettrail/ipstory/cmd/ipstory/models"
	"github.com/nettrail/ipstory/cmd/ipstory/repository"
	"github.com/nettrail/ipstory/common/logger"
)

// Order selects the iteration direction for a search.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder validates an externally supplied order value.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderAsc, OrderDesc:
		return Order(s), nil
	}
	return "", fmt.Errorf("unknown search order: %q", s)
}

// SearchQuery bundles the filter, pagination and ordering arguments of
// a search. Filtering happens before pagination: Offset and Limit apply
// to the sequence of matches, not to raw history positions.
type SearchQuery struct {
	// Kind restricts results to entries whose payload case matches.
	Kind *models.Kind

	// Offset skips the first N matches. Defaults to 0.
	Offset int

	// Limit caps the number of returned matches. Nil means unbounded;
	// an explicit zero yields no matches.
	Limit *int

	// Order defaults to ascending.
	Order Order
}

// StoryService owns the history of every address. Each operation loads
// the full story, works on the in-memory copy and, for mutations, saves
// the whole story back. A mutation either completes fully or leaves no
// persisted change. Operations on the same address are serialized.
type StoryService struct {
	store repository.StoryStore
	log   *logger.Logger
	locks keyLocks
	now   func() time.Time
}

// NewStoryService creates a story service over the given store.
func NewStoryService(store repository.StoryStore, log *logger.Logger) *StoryService {
	return &StoryService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Register creates an empty story for the address if none exists.
// Idempotent: registering a known address is a no-op.
func (s *StoryService) Register(ctx context.Context, ip netip.Addr) (netip.Addr, error) {
	unlock := s.locks.lock(ip)
	defer unlock()

	exists, err := s.store.Exists(ctx, ip)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("check story existence: %w", err)
	}
	if exists {
		return ip, nil
	}

	if err := s.store.Save(ctx, models.NewIpStory(ip)); err != nil {
		return netip.Addr{}, fmt.Errorf("create story: %w", err)
	}

	s.log.Info("registered address", "ip", ip.String())
	return ip, nil
}

// AppendEntry adds a draft entry to the address history. The service
// assigns a fresh identity; a missing creation timestamp defaults to
// now. ErrConflict if the resulting timestamp is already taken,
// ErrStoryNotFound if the address was never registered. Returns the
// stored entry, identity included.
func (s *StoryService) AppendEntry(ctx context.Context, ip netip.Addr, draft models.Entry) (models.Entry, error) {
	if err := draft.Payload.Validate(); err != nil {
		return models.Entry{}, err
	}

	unlock := s.locks.lock(ip)
	defer unlock()

	story, err := s.load(ctx, ip)
	if err != nil {
		return models.Entry{}, err
	}

	id := uuid.New()
	draft.ID = &id
	draft.ModifiedAt = nil
	if draft.CreatedAt == nil {
		now := s.now().UTC()
		draft.CreatedAt = &now
	}

	if !story.History.Insert(draft) {
		return models.Entry{}, ErrConflict
	}

	if err := s.store.Save(ctx, story); err != nil {
		return models.Entry{}, fmt.Errorf("save story: %w", err)
	}

	s.log.Info("appended entry",
		"ip", ip.String(),
		"entry", id,
		"kind", draft.Kind(),
	)
	return draft, nil
}

// UpdateEntry replaces the entry whose identity matches the input,
// whole, payload included. The identity is preserved; ModifiedAt is set
// to now. A missing creation timestamp keeps the entry in its current
// slot; a changed one moves it, vacating the old slot. Moving onto a
// timestamp held by a different entry is rejected with ErrConflict.
// An unknown or absent identity reports (false, nil) and leaves the
// history untouched.
func (s *StoryService) UpdateEntry(ctx context.Context, ip netip.Addr, entry models.Entry) (bool, error) {
	if entry.ID == nil {
		return false, nil
	}
	if err := entry.Payload.Validate(); err != nil {
		return false, err
	}

	unlock := s.locks.lock(ip)
	defer unlock()

	story, err := s.load(ctx, ip)
	if err != nil {
		return false, err
	}

	current, ok := story.History.FindByID(*entry.ID)
	if !ok {
		return false, nil
	}

	if entry.CreatedAt == nil {
		entry.CreatedAt = current.CreatedAt
	}
	if !entry.CreatedAt.Equal(*current.CreatedAt) && story.History.Contains(*entry.CreatedAt) {
		return false, ErrConflict
	}

	now := s.now().UTC()
	entry.ModifiedAt = &now
	entry.ID = current.ID

	story.History.Remove(*current.CreatedAt)
	story.History.Insert(entry)

	if err := s.store.Save(ctx, story); err != nil {
		return false, fmt.Errorf("save story: %w", err)
	}

	s.log.Info("updated entry", "ip", ip.String(), "entry", *entry.ID)
	return true, nil
}

// SearchEntries returns entry copies from the address history, iterated
// in the requested timestamp order, filtered by kind, then paginated.
// ErrStoryNotFound if the address was never registered.
func (s *StoryService) SearchEntries(ctx context.Context, ip netip.Addr, q SearchQuery) ([]models.Entry, error) {
	unlock := s.locks.lock(ip)
	defer unlock()

	story, err := s.load(ctx, ip)
	if err != nil {
		return nil, err
	}

	var entries []models.Entry
	if q.Order == OrderDesc {
		entries = story.History.Descending()
	} else {
		entries = story.History.Ascending()
	}

	out := make([]models.Entry, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if q.Limit != nil && len(out) >= *q.Limit {
			break
		}
		if q.Kind != nil && e.Kind() != *q.Kind {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteEntry removes the entry whose identity matches id and persists
// the reduced history, returning the removed entry. An unknown or
// absent identity is a no-op reporting (nil, nil).
func (s *StoryService) DeleteEntry(ctx context.Context, ip netip.Addr, id *uuid.UUID) (*models.Entry, error) {
	if id == nil {
		return nil, nil
	}

	unlock := s.locks.lock(ip)
	defer unlock()

	story, err := s.load(ctx, ip)
	if err != nil {
		return nil, err
	}

	removed, ok := story.History.RemoveByID(*id)
	if !ok {
		return nil, nil
	}

	if err := s.store.Save(ctx, story); err != nil {
		return nil, fmt.Errorf("save story: %w", err)
	}

	s.log.Info("deleted entry", "ip", ip.String(), "entry", *id)
	return &removed, nil
}

func (s *StoryService) load(ctx context.Context, ip netip.Addr) (models.IpStory, error) {
	story, err := s.store.Load(ctx, ip)
	if errors.Is(err, repository.ErrNoStory) {
		return models.IpStory{}, ErrStoryNotFound
	}
	if err != nil {
		return models.IpStory{}, fmt.Errorf("load story: %w", err)
	}
	return story, nil
}
