package domain

import "github.com/pion/webrtc/v3"

const (
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalICECandidate = "ice-candidate"
	SignalChat         = "chat"
	SignalLeave        = "leave"
	SignalJoined       = "joined"
	SignalPeerLeft     = "peer-left"
	SignalRoomClosed   = "room-closed"
	SignalWelcome      = "welcome"
)

type SignalMessage struct {
	Type      string                     `json:"type"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Room      string                     `json:"room,omitempty"`
	SenderID  string                     `json:"sender_id,omitempty"`
	TargetID  string                     `json:"target_id,omitempty"`
	Payload   map[string]any             `json:"payload,omitempty"`
}
