package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/sl"
)

const maxChatMessageLength = 4000

type roomLookup interface {
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
}

// SignalService relays WebRTC signalling between the peers of a meeting.
// Meetings are kept in memory and dropped when their last peer leaves.
type SignalService struct {
	rooms    roomLookup
	log      *slog.Logger
	mu       sync.RWMutex
	meetings map[string]*domain.Meeting
}

func NewSignalService(rooms roomLookup, log *slog.Logger) *SignalService {
	if log == nil {
		log = slog.Default()
	}
	return &SignalService{
		rooms:    rooms,
		log:      log,
		meetings: make(map[string]*domain.Meeting),
	}
}

func (s *SignalService) RegisterPeer(ctx context.Context, code string, identity domain.Participant) (*domain.Peer, error) {
	const op = "service.signal.register_peer"
	log := s.log.With(slog.String("op", op), slog.String("code", code))

	if strings.TrimSpace(identity.Name) == "" {
		return nil, ErrIdentityRequired
	}

	if _, err := s.rooms.GetRoom(ctx, code); err != nil {
		log.Info("refusing peer", sl.Err(err))
		return nil, err
	}

	peer := domain.NewPeer(identity)
	meeting, existing := s.join(code, peer)

	for _, other := range existing {
		peer.EnqueueEvent(joinedEvent(code, other))
	}
	s.broadcast(meeting, joinedEvent(code, peer), peer.ID)

	log.Info("peer registered",
		slog.String("peer_id", peer.ID),
		slog.String("display_name", peer.DisplayName),
		slog.Int("peers_count", len(existing)+1),
	)
	return peer, nil
}

func (s *SignalService) UnregisterPeer(_ context.Context, code string, peerID string) error {
	s.log.Info("unregistering peer", slog.String("code", code), slog.String("peer_id", peerID))

	s.mu.Lock()
	meeting, ok := s.meetings[code]
	if !ok {
		s.mu.Unlock()
		return ErrPeerNotFound
	}

	meeting.Mutex.Lock()
	peer, ok := meeting.Peers[peerID]
	if ok {
		delete(meeting.Peers, peerID)
	}
	empty := len(meeting.Peers) == 0
	meeting.Mutex.Unlock()

	if empty {
		delete(s.meetings, code)
	}
	s.mu.Unlock()

	if !ok {
		return ErrPeerNotFound
	}
	peer.Close()

	s.broadcast(meeting, domain.SignalMessage{
		Type:     domain.SignalPeerLeft,
		Room:     code,
		SenderID: peerID,
		Payload:  map[string]any{"peer_id": peerID},
	}, peerID)
	return nil
}

func (s *SignalService) HandleSignal(ctx context.Context, code string, peerID string, message *domain.SignalMessage) error {
	const op = "service.signal.handle"
	if message == nil {
		return errors.New("message is required")
	}
	log := s.log.With(slog.String("op", op), slog.String("code", code), slog.String("peer_id", peerID))
	log.Debug("new signal", slog.String("type", message.Type), slog.String("target", message.TargetID))

	meeting := s.existingMeeting(code)
	if meeting == nil {
		return ErrPeerNotFound
	}

	meeting.Mutex.RLock()
	peer, ok := meeting.Peers[peerID]
	meeting.Mutex.RUnlock()
	if !ok {
		return ErrPeerNotFound
	}
	peer.Touch()

	switch message.Type {
	case domain.SignalOffer, domain.SignalAnswer, domain.SignalICECandidate:
		forward := *message
		forward.Room = code
		forward.SenderID = peer.ID

		if forward.TargetID == "" {
			s.broadcast(meeting, forward, peer.ID)
			return nil
		}

		meeting.Mutex.RLock()
		target, ok := meeting.Peers[forward.TargetID]
		meeting.Mutex.RUnlock()
		if !ok {
			return ErrPeerNotFound
		}
		if !target.EnqueueEvent(forward) {
			log.Debug("dropping signal", slog.String("target", target.ID))
		}
	case domain.SignalChat:
		text, err := chatText(message.Payload)
		if err != nil {
			return err
		}
		s.broadcast(meeting, domain.SignalMessage{
			Type:     domain.SignalChat,
			Room:     code,
			SenderID: peer.ID,
			Payload: map[string]any{
				"id":        uuid.New().String(),
				"sender":    peer.DisplayName,
				"message":   text,
				"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			},
		}, "")
	case domain.SignalLeave:
		return s.UnregisterPeer(ctx, code, peerID)
	default:
		return errors.Join(ErrUnsupportedSignal, errors.New(message.Type))
	}

	return nil
}

func (s *SignalService) ListPeers(_ context.Context, code string) ([]*domain.Peer, error) {
	meeting := s.existingMeeting(code)
	if meeting == nil {
		return []*domain.Peer{}, nil
	}
	return meeting.Snapshot(""), nil
}

// CloseMeeting tells every peer the room is gone and disconnects them.
func (s *SignalService) CloseMeeting(code string) {
	s.mu.Lock()
	meeting, ok := s.meetings[code]
	delete(s.meetings, code)
	s.mu.Unlock()
	if !ok {
		return
	}

	for _, peer := range meeting.Snapshot("") {
		peer.EnqueueEvent(domain.SignalMessage{Type: domain.SignalRoomClosed, Room: code})
		peer.Close()
	}
	s.log.Info("meeting closed", slog.String("code", code))
}

// join adds peer to the meeting of code, creating it if needed, and returns
// the peers that were already there.
func (s *SignalService) join(code string, peer *domain.Peer) (*domain.Meeting, []*domain.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, ok := s.meetings[code]
	if !ok {
		meeting = domain.NewMeeting(code)
		s.meetings[code] = meeting
	}
	existing := meeting.Snapshot("")

	meeting.Mutex.Lock()
	meeting.Peers[peer.ID] = peer
	meeting.Mutex.Unlock()

	return meeting, existing
}

func (s *SignalService) existingMeeting(code string) *domain.Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meetings[code]
}

func (s *SignalService) broadcast(meeting *domain.Meeting, msg domain.SignalMessage, exclude string) {
	for _, peer := range meeting.Snapshot(exclude) {
		if !peer.EnqueueEvent(msg) {
			s.log.Debug("dropping broadcast event", slog.String("peer", peer.ID), slog.String("type", msg.Type))
		}
	}
}

func joinedEvent(code string, peer *domain.Peer) domain.SignalMessage {
	return domain.SignalMessage{
		Type:     domain.SignalJoined,
		Room:     code,
		SenderID: peer.ID,
		Payload: map[string]any{
			"peer_id":      peer.ID,
			"display_name": peer.DisplayName,
		},
	}
}

func chatText(payload map[string]any) (string, error) {
	raw, ok := payload["message"]
	if !ok {
		return "", ErrInvalidChatMessage
	}
	text, ok := raw.(string)
	if !ok {
		return "", ErrInvalidChatMessage
	}
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxChatMessageLength {
		return "", ErrInvalidChatMessage
	}
	return text, nil
}
