package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/axenix_meet/internal/api/http/converter"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/service"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/sl"
)

// SignalController upgrades meeting pages to the signalling websocket.
type SignalController struct {
	meet     service.MeetInteractor
	signal   service.SignalInteractor
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewSignalController(meet service.MeetInteractor, signal service.SignalInteractor, log *slog.Logger, allowedOrigins []string) *SignalController {
	if log == nil {
		log = slog.Default()
	}
	return &SignalController{
		meet:     meet,
		signal:   signal,
		log:      log,
		upgrader: newUpgrader(allowedOrigins),
	}
}

// Connect joins the caller to the meeting. The identity comes from the
// session, or from the name/email query for clients without one.
func (c *SignalController) Connect(ctx *gin.Context) {
	const op = "http.signal.connect"
	log := c.log.With(slog.String("op", op))

	room, err := c.meet.GetRoom(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		handleServiceError(ctx, log, err)
		return
	}

	identity := loadIdentity(sessions.Default(ctx))
	if identity.Name == "" {
		identity = domain.NewParticipant(ctx.Query("name"), ctx.Query("email"))
	}
	if identity.Name == "" {
		handleServiceError(ctx, log, service.ErrIdentityRequired)
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", sl.Err(err))
		return
	}
	writer := newSocketWriter(conn)

	// the socket outlives the request context
	peer, err := c.signal.RegisterPeer(context.Background(), room.Code, identity)
	if err != nil {
		_ = writer.WriteJSON(gin.H{"type": "error", "error": err.Error()})
		writer.Close(websocket.CloseNormalClosure, "")
		return
	}
	peer.SetStatus(domain.PeerStatusConnected)

	log = log.With(slog.String("code", room.Code), slog.String("peer_id", peer.ID))

	if err := writer.WriteJSON(domain.SignalMessage{
		Type:     domain.SignalWelcome,
		Room:     room.Code,
		SenderID: peer.ID,
		Payload: map[string]any{
			"peer_id":      peer.ID,
			"display_name": peer.DisplayName,
		},
	}); err != nil {
		_ = c.signal.UnregisterPeer(context.Background(), room.Code, peer.ID)
		writer.Close(websocket.CloseInternalServerErr, "")
		return
	}

	go c.forwardPeerEvents(peer, writer)

	prepareRead(conn)
	for {
		var msg domain.SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("socket closed", sl.Err(err))
			}
			break
		}

		err := c.signal.HandleSignal(context.Background(), room.Code, peer.ID, &msg)
		if msg.Type == domain.SignalLeave {
			break
		}
		if err != nil {
			_ = writer.WriteJSON(gin.H{"type": "error", "error": err.Error()})
		}
	}

	if err := c.signal.UnregisterPeer(context.Background(), room.Code, peer.ID); err != nil && !errors.Is(err, service.ErrPeerNotFound) {
		log.Warn("failed to unregister peer", sl.Err(err))
	}
	writer.Close(websocket.CloseNormalClosure, "")
}

// forwardPeerEvents drains the peer's queue into the socket and keeps the
// connection alive. It returns once the peer is closed.
func (c *SignalController) forwardPeerEvents(peer *domain.Peer, writer *socketWriter) {
	ticker := time.NewTicker(socketPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-peer.Events:
			if !ok {
				writer.Close(websocket.CloseNormalClosure, "")
				return
			}
			if err := writer.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := writer.Ping(); err != nil {
				return
			}
		}
	}
}

// ListPeers reports who is currently connected to a meeting.
func (c *SignalController) ListPeers(ctx *gin.Context) {
	log := c.log.With(slog.String("op", "http.signal.list_peers"))

	room, err := c.meet.GetRoom(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		handleServiceError(ctx, log, err)
		return
	}

	peers, err := c.signal.ListPeers(ctx.Request.Context(), room.Code)
	if err != nil {
		handleServiceError(ctx, log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"peers": converter.PeersToApi(peers)})
}
