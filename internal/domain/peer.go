package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type PeerStatus string

const (
	PeerStatusConnected    PeerStatus = "connected"
	PeerStatusConnecting   PeerStatus = "connecting"
	PeerStatusDisconnected PeerStatus = "disconnected"
)

const peerEventBuffer = 16

// Peer is a participant connected to a meeting's signalling channel.
type Peer struct {
	ID          string
	DisplayName string
	Email       string
	Status      PeerStatus
	JoinedAt    time.Time
	LastSeen    time.Time
	Mutex       sync.RWMutex
	Events      chan SignalMessage

	closeOnce sync.Once
}

func NewPeer(p Participant) *Peer {
	now := time.Now().UTC()
	return &Peer{
		ID:          uuid.New().String(),
		DisplayName: p.Name,
		Email:       p.Email,
		Status:      PeerStatusConnecting,
		JoinedAt:    now,
		LastSeen:    now,
		Events:      make(chan SignalMessage, peerEventBuffer),
	}
}

func (p *Peer) Touch() {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()
	p.LastSeen = time.Now().UTC()
}

// EnqueueEvent delivers event without blocking. It reports false when the
// buffer is full or the peer is gone.
func (p *Peer) EnqueueEvent(event SignalMessage) bool {
	p.Mutex.RLock()
	defer p.Mutex.RUnlock()
	if p.Status == PeerStatusDisconnected {
		return false
	}
	select {
	case p.Events <- event:
		return true
	default:
		return false
	}
}

func (p *Peer) SetStatus(status PeerStatus) {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()
	p.Status = status
}

func (p *Peer) CurrentStatus() PeerStatus {
	p.Mutex.RLock()
	defer p.Mutex.RUnlock()
	return p.Status
}

// Close marks the peer disconnected and closes its event channel once.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.Mutex.Lock()
		p.Status = PeerStatusDisconnected
		close(p.Events)
		p.Mutex.Unlock()
	})
}
