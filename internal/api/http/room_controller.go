package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/axenix_meet/internal/api/http/converter"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/service"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/sl"
)

// RoomController is the JSON surface over the meeting flows.
type RoomController struct {
	meet     service.MeetInteractor
	signal   service.SignalInteractor
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewRoomController(meet service.MeetInteractor, signal service.SignalInteractor, log *slog.Logger, allowedOrigins []string) *RoomController {
	if log == nil {
		log = slog.Default()
	}
	return &RoomController{
		meet:     meet,
		signal:   signal,
		log:      log,
		upgrader: newUpgrader(allowedOrigins),
	}
}

func (c *RoomController) CreateRoom(ctx *gin.Context) {
	type CreateRoomRequest struct {
		Name  string `json:"name" binding:"omitempty,max=255"`
		Email string `json:"email" binding:"omitempty,email,max=255"`
	}
	var req CreateRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body", "fields": fieldErrors(err)})
		return
	}

	start, err := c.meet.StartMeeting(ctx.Request.Context(), domain.NewParticipant(req.Name, req.Email))
	if err != nil {
		handleServiceError(ctx, c.log, err)
		return
	}
	if start.NeedsIdentity {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"error":          service.ErrIdentityRequired.Error(),
			"needs_identity": true,
			"code":           start.Code,
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"room": converter.RoomToApi(start.Room)})
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	room, err := c.meet.GetRoom(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		handleServiceError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

// JoinRoom is the script counterpart of the join form: the caller gets the
// path to navigate to only after the room was found.
func (c *RoomController) JoinRoom(ctx *gin.Context) {
	var req joinForm
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": service.ErrInvalidCode.Error(), "fields": fieldErrors(err)})
		return
	}

	room, err := c.meet.JoinMeeting(ctx.Request.Context(), req.RoomID)
	if err != nil {
		handleServiceError(ctx, c.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"room":     converter.RoomToApi(room),
		"redirect": converter.MeetingPath(room.Code),
	})
}

func (c *RoomController) ListRooms(ctx *gin.Context) {
	rooms, err := c.meet.ListRooms(ctx.Request.Context())
	if err != nil {
		handleServiceError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": converter.RoomsToApi(rooms)})
}

// CloseRoom deletes the room and disconnects everyone still in it. Only the
// creator's email is accepted.
func (c *RoomController) CloseRoom(ctx *gin.Context) {
	type CloseRoomRequest struct {
		Email string `json:"email" binding:"required,email"`
	}
	var req CloseRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body", "fields": fieldErrors(err)})
		return
	}

	code := ctx.Param("code")
	if err := c.meet.CloseRoom(ctx.Request.Context(), code, req.Email); err != nil {
		handleServiceError(ctx, c.log, err)
		return
	}
	c.signal.CloseMeeting(code)

	ctx.Status(http.StatusNoContent)
}

// WatchRoom streams room events over a websocket: the current value first,
// then every change until either side goes away.
func (c *RoomController) WatchRoom(ctx *gin.Context) {
	const op = "http.room.watch"
	log := c.log.With(slog.String("op", op), slog.String("code", ctx.Param("code")))

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.meet.WatchRoom(watchCtx, ctx.Param("code"))
	if err != nil {
		handleServiceError(ctx, log, err)
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", sl.Err(err))
		return
	}
	writer := newSocketWriter(conn)
	defer writer.Close(websocket.CloseNormalClosure, "")

	// the client never sends anything; reading only notices when it leaves
	go func() {
		defer cancel()
		prepareRead(conn)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(socketPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writer.WriteJSON(watchEvent(event)); err != nil {
				log.Debug("watch client gone", sl.Err(err))
				return
			}
		case <-ticker.C:
			if err := writer.Ping(); err != nil {
				return
			}
		case <-watchCtx.Done():
			return
		}
	}
}

func watchEvent(event domain.RoomEvent) gin.H {
	msg := gin.H{
		"type":   event.Type,
		"code":   event.Code,
		"exists": event.Exists(),
	}
	if event.Room != nil {
		msg["room"] = converter.RoomToApi(event.Room)
	}
	return msg
}
