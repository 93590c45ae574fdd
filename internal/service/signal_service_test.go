package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSignalService(t *testing.T) (*SignalService, string) {
	t.Helper()
	meet, _ := newTestMeetService(t)
	room, err := meet.CompleteSignIn(context.Background(), "AAAAAAAAAA", ada)
	require.NoError(t, err)
	return NewSignalService(meet, discardLogger()), room.Code
}

func nextEvent(t *testing.T, peer *domain.Peer) domain.SignalMessage {
	t.Helper()
	select {
	case msg, ok := <-peer.Events:
		require.True(t, ok, "peer channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for signal")
		return domain.SignalMessage{}
	}
}

func TestRegisterPeerUnknownRoom(t *testing.T) {
	svc, _ := newTestSignalService(t)

	_, err := svc.RegisterPeer(context.Background(), "ZZZZZZZZZZ", ada)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = svc.RegisterPeer(context.Background(), "AAAAAAAAAA", domain.Participant{})
	assert.ErrorIs(t, err, ErrIdentityRequired)
}

func TestRegisterPeerAnnouncesJoins(t *testing.T) {
	svc, code := newTestSignalService(t)
	ctx := context.Background()

	first, err := svc.RegisterPeer(ctx, code, ada)
	require.NoError(t, err)

	second, err := svc.RegisterPeer(ctx, code, domain.NewParticipant("Grace", "grace@example.com"))
	require.NoError(t, err)

	joined := nextEvent(t, first)
	assert.Equal(t, domain.SignalJoined, joined.Type)
	assert.Equal(t, second.ID, joined.SenderID)
	assert.Equal(t, "Grace", joined.Payload["display_name"])

	existing := nextEvent(t, second)
	assert.Equal(t, domain.SignalJoined, existing.Type)
	assert.Equal(t, first.ID, existing.SenderID)

	peers, err := svc.ListPeers(ctx, code)
	require.NoError(t, err)
	assert.Len(t, peers, 2)
}

func TestHandleSignalRelaysOfferToTarget(t *testing.T) {
	svc, code := newTestSignalService(t)
	ctx := context.Background()

	caller, err := svc.RegisterPeer(ctx, code, ada)
	require.NoError(t, err)
	callee, err := svc.RegisterPeer(ctx, code, domain.NewParticipant("Grace", "grace@example.com"))
	require.NoError(t, err)
	nextEvent(t, caller)
	nextEvent(t, callee)

	offer := &domain.SignalMessage{
		Type:     domain.SignalOffer,
		TargetID: callee.ID,
		SDP:      &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"},
	}
	require.NoError(t, svc.HandleSignal(ctx, code, caller.ID, offer))

	got := nextEvent(t, callee)
	assert.Equal(t, domain.SignalOffer, got.Type)
	assert.Equal(t, caller.ID, got.SenderID)
	assert.Equal(t, code, got.Room)
	require.NotNil(t, got.SDP)
	assert.Equal(t, "v=0", got.SDP.SDP)

	missing := &domain.SignalMessage{Type: domain.SignalAnswer, TargetID: "nobody"}
	assert.ErrorIs(t, svc.HandleSignal(ctx, code, caller.ID, missing), ErrPeerNotFound)
}

func TestHandleSignalChat(t *testing.T) {
	svc, code := newTestSignalService(t)
	ctx := context.Background()

	peer, err := svc.RegisterPeer(ctx, code, ada)
	require.NoError(t, err)

	require.NoError(t, svc.HandleSignal(ctx, code, peer.ID, &domain.SignalMessage{
		Type:    domain.SignalChat,
		Payload: map[string]any{"message": "  hello  "},
	}))

	msg := nextEvent(t, peer)
	assert.Equal(t, domain.SignalChat, msg.Type)
	assert.Equal(t, "hello", msg.Payload["message"])
	assert.Equal(t, "Ada", msg.Payload["sender"])

	for _, payload := range []map[string]any{
		nil,
		{"message": 42},
		{"message": "   "},
		{"message": strings.Repeat("x", maxChatMessageLength+1)},
	} {
		err := svc.HandleSignal(ctx, code, peer.ID, &domain.SignalMessage{Type: domain.SignalChat, Payload: payload})
		assert.ErrorIs(t, err, ErrInvalidChatMessage)
	}

	err = svc.HandleSignal(ctx, code, peer.ID, &domain.SignalMessage{Type: "dance"})
	assert.ErrorIs(t, err, ErrUnsupportedSignal)
}

func TestLeaveNotifiesOthersAndDropsEmptyMeeting(t *testing.T) {
	svc, code := newTestSignalService(t)
	ctx := context.Background()

	first, err := svc.RegisterPeer(ctx, code, ada)
	require.NoError(t, err)
	second, err := svc.RegisterPeer(ctx, code, domain.NewParticipant("Grace", "grace@example.com"))
	require.NoError(t, err)
	nextEvent(t, first)
	nextEvent(t, second)

	require.NoError(t, svc.HandleSignal(ctx, code, second.ID, &domain.SignalMessage{Type: domain.SignalLeave}))

	left := nextEvent(t, first)
	assert.Equal(t, domain.SignalPeerLeft, left.Type)
	assert.Equal(t, second.ID, left.SenderID)
	assert.Equal(t, domain.PeerStatusDisconnected, second.CurrentStatus())

	require.NoError(t, svc.UnregisterPeer(ctx, code, first.ID))
	assert.ErrorIs(t, svc.UnregisterPeer(ctx, code, first.ID), ErrPeerNotFound)

	peers, err := svc.ListPeers(ctx, code)
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestCloseMeeting(t *testing.T) {
	svc, code := newTestSignalService(t)
	ctx := context.Background()

	peer, err := svc.RegisterPeer(ctx, code, ada)
	require.NoError(t, err)

	svc.CloseMeeting(code)

	closed := nextEvent(t, peer)
	assert.Equal(t, domain.SignalRoomClosed, closed.Type)
	_, ok := <-peer.Events
	assert.False(t, ok)
}
