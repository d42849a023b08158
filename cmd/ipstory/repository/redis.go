package repository

import (
	"context"
	"encoding/json"
	"net/netip"

	rediscommon "github.com/nettrail/ipstory/common/redis"

	"github.com/nettrail/ipstory/cmd/ipstory/models"
)

// storyHash is the Redis hash holding every story, one field per address.
const storyHash = "ip-story"

// RedisStoryStore keeps each story as one JSON blob in a hash field
// keyed by the address string.
type RedisStoryStore struct {
	redis *rediscommon.Client
}

// NewRedisStoryStore creates a Redis-backed story store.
func NewRedisStoryStore(client *rediscommon.Client) *RedisStoryStore {
	return &RedisStoryStore{redis: client}
}

func (s *RedisStoryStore) Exists(ctx context.Context, ip netip.Addr) (bool, error) {
	exists, err := s.redis.HashExists(ctx, storyHash, ip.String())
	if err != nil {
		return false, &StorageError{Op: "exists", IP: ip.String(), Err: err}
	}
	return exists, nil
}

func (s *RedisStoryStore) Load(ctx context.Context, ip netip.Addr) (models.IpStory, error) {
	blob, found, err := s.redis.HashGet(ctx, storyHash, ip.String())
	if err != nil {
		return models.IpStory{}, &StorageError{Op: "load", IP: ip.String(), Err: err}
	}
	if !found {
		return models.IpStory{}, ErrNoStory
	}
	var story models.IpStory
	if err := json.Unmarshal([]byte(blob), &story); err != nil {
		return models.IpStory{}, &StorageError{Op: "load", IP: ip.String(), Err: err}
	}
	return story, nil
}

func (s *RedisStoryStore) Save(ctx context.Context, story models.IpStory) error {
	blob, err := json.Marshal(story)
	if err != nil {
		return &StorageError{Op: "save", IP: story.IP.String(), Err: err}
	}
	if err := s.redis.HashSet(ctx, storyHash, story.IP.String(), string(blob)); err != nil {
		return &StorageError{Op: "save", IP: story.IP.String(), Err: err}
	}
	return nil
}
