package core

import (
	"slices"
	"sync"
)

// PresenceStore is the wholesale-replaced snapshot of who is online. No
// diffing: each presence:list replaces the previous one entirely.
type PresenceStore struct {
	mu    sync.RWMutex
	peers []Peer
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{}
}

func (s *PresenceStore) Replace(peers []Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = slices.Clone(peers)
}

func (s *PresenceStore) Peers() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.peers)
}

func (s *PresenceStore) Find(name string) (Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.peers {
		if p.Name == name {
			return p, true
		}
	}
	return Peer{}, false
}
