package service

import (
	"net/netip"
	"sync"
)

// keyLocks hands out one mutex per address, created on first use.
// Serializing per address instead of globally keeps the
// at-most-one-writer-per-address guarantee while letting unrelated
// addresses proceed in parallel.
type keyLocks struct {
	mu    sync.Mutex
	locks map[netip.Addr]*sync.Mutex
}

// lock acquires the mutex for the address and returns its unlock func.
func (k *keyLocks) lock(ip netip.Addr) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[netip.Addr]*sync.Mutex)
	}
	m, ok := k.locks[ip]
	if !ok {
		m = &sync.Mutex{}
		k.locks[ip] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
