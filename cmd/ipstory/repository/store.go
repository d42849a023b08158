package repository

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/nettrail/ipstory/cmd/ipstory/models"
)

// ErrNoStory is returned by Load when no story is stored for the address.
var ErrNoStory = errors.New("no story stored for address")

// StorageError wraps a persistence failure for one story key.
type StorageError struct {
	Op  string // "exists", "load" or "save"
	IP  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s for %s: %v", e.Op, e.IP, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StoryStore is the persistence boundary for address histories. A story
// is loaded and saved whole: there are no transactions, no partial
// writes and no concurrency tokens. Save replaces any prior value.
type StoryStore interface {
	// Exists reports whether a story is stored for the address.
	Exists(ctx context.Context, ip netip.Addr) (bool, error)

	// Load returns the stored story. ErrNoStory if the key is absent;
	// a decode failure surfaces as a StorageError and is never repaired.
	Load(ctx context.Context, ip netip.Addr) (models.IpStory, error)

	// Save serializes the full story and writes it under its address key.
	Save(ctx context.Context, story models.IpStory) error
}
