package converter

import (
	"time"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
)

type RoomResponse struct {
	Code            string     `json:"code"`
	CreatorName     string     `json:"creator_name"`
	ParticipantsRef string     `json:"participants_ref"`
	URL             string     `json:"url"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	IsExpired       bool       `json:"is_expired"`
}

type PeerResponse struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Status      domain.PeerStatus `json:"status"`
	JoinedAt    time.Time         `json:"joined_at"`
}

// MeetingPath is the route a visitor is sent to for a room.
func MeetingPath(code string) string {
	return "/meet/" + code
}

func RoomToApi(r *domain.Room) *RoomResponse {
	var expiresAt *time.Time
	if !r.ExpiresAt.IsZero() {
		t := r.ExpiresAt
		expiresAt = &t
	}

	return &RoomResponse{
		Code:            r.Code,
		CreatorName:     r.CreatorName,
		ParticipantsRef: r.ParticipantsRef,
		URL:             MeetingPath(r.Code),
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       expiresAt,
		IsExpired:       r.IsExpired(time.Now()),
	}
}

func RoomsToApi(rooms []*domain.Room) []*RoomResponse {
	result := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		result = append(result, RoomToApi(r))
	}
	return result
}

func PeersToApi(peers []*domain.Peer) []PeerResponse {
	result := make([]PeerResponse, 0, len(peers))
	for _, p := range peers {
		p.Mutex.RLock()
		result = append(result, PeerResponse{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Status:      p.Status,
			JoinedAt:    p.JoinedAt,
		})
		p.Mutex.RUnlock()
	}
	return result
}
