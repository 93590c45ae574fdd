package domain

import "sync"

// Meeting is the live signalling session of a room. It is process-local and
// never written to the room store.
type Meeting struct {
	Mutex sync.RWMutex
	Code  string
	Peers map[string]*Peer
}

func NewMeeting(code string) *Meeting {
	return &Meeting{
		Code:  code,
		Peers: make(map[string]*Peer),
	}
}

// Snapshot returns the current peers, optionally skipping one of them.
func (m *Meeting) Snapshot(exclude string) []*Peer {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()

	peers := make([]*Peer, 0, len(m.Peers))
	for id, peer := range m.Peers {
		if id == exclude {
			continue
		}
		peers = append(peers, peer)
	}
	return peers
}
