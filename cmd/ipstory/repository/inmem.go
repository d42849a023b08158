package repository

import (
	"context"
	"encoding/json"
	"net/netip"
	"sync"

	"github.com/nettrail/ipstory/cmd/ipstory/models"
)

// MemoryStoryStore keeps serialized stories in a map. It backs tests
// and single-node setups where persistence across restarts is not
// needed. Stories go through the same JSON encode/decode cycle as the
// durable backends.
type MemoryStoryStore struct {
	mu      sync.Mutex
	stories map[netip.Addr][]byte
}

// NewMemoryStoryStore creates an empty in-memory story store.
func NewMemoryStoryStore() *MemoryStoryStore {
	return &MemoryStoryStore{stories: make(map[netip.Addr][]byte)}
}

func (s *MemoryStoryStore) Exists(ctx context.Context, ip netip.Addr) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stories[ip]
	return ok, nil
}

func (s *MemoryStoryStore) Load(ctx context.Context, ip netip.Addr) (models.IpStory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.stories[ip]
	if !ok {
		return models.IpStory{}, ErrNoStory
	}
	var story models.IpStory
	if err := json.Unmarshal(blob, &story); err != nil {
		return models.IpStory{}, &StorageError{Op: "load", IP: ip.String(), Err: err}
	}
	return story, nil
}

func (s *MemoryStoryStore) Save(ctx context.Context, story models.IpStory) error {
	blob, err := json.Marshal(story)
	if err != nil {
		return &StorageError{Op: "save", IP: story.IP.String(), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories[story.IP] = blob
	return nil
}
