package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/axenix_meet/internal/api/http/converter"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/service"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/sl"
)

// MeetController serves the landing page, its forms and the meeting page.
type MeetController struct {
	meet        service.MeetInteractor
	log         *slog.Logger
	stunServers []string
}

func NewMeetController(meet service.MeetInteractor, log *slog.Logger, stunServers []string) *MeetController {
	if log == nil {
		log = slog.Default()
	}
	return &MeetController{meet: meet, log: log, stunServers: stunServers}
}

type signInForm struct {
	Name  string `form:"name" binding:"required,max=255"`
	Email string `form:"email" binding:"required,email,max=255"`
}

type joinForm struct {
	RoomID string `form:"roomId" json:"room_id" binding:"required,roomcode"`
}

func (c *MeetController) Landing(ctx *gin.Context) {
	session := sessions.Default(ctx)
	view := newLandingView(loadIdentity(session))
	view.Toasts = takeToasts(session)
	c.render(ctx, session, http.StatusOK, "landing", view)
}

// CreateMeeting handles the "new meeting" button. Without a known name and
// email it opens the identity modal and writes nothing.
func (c *MeetController) CreateMeeting(ctx *gin.Context) {
	session := sessions.Default(ctx)
	identity := loadIdentity(session)
	view := newLandingView(identity)

	start, err := c.meet.StartMeeting(ctx.Request.Context(), identity)
	if err != nil {
		view.toast(toastFor(err))
		c.render(ctx, session, statusFor(err), "landing", view)
		return
	}

	if start.NeedsIdentity {
		setPendingRoom(session, start.Code)
		view.openModal(true)
		c.render(ctx, session, http.StatusOK, "landing", view)
		return
	}

	clearPendingRoom(session)
	c.redirect(ctx, session, converter.MeetingPath(start.Code))
}

// SignIn is the identity modal submit. It stores the identity in the session
// and creates the room that was waiting for it.
func (c *MeetController) SignIn(ctx *gin.Context) {
	session := sessions.Default(ctx)
	view := newLandingView(loadIdentity(session))

	var form signInForm
	bindErr := ctx.ShouldBind(&form)
	identity := domain.NewParticipant(form.Name, form.Email)
	if bindErr == nil {
		bindErr = identity.Validate()
	}
	if bindErr != nil {
		view.Identity = identity
		view.openModal(true)
		view.Modal.Errors = fieldErrors(bindErr)
		c.render(ctx, session, http.StatusUnprocessableEntity, "landing", view)
		return
	}

	saveIdentity(session, identity)
	view.Identity = identity

	code := pendingRoom(session)
	if code == "" {
		addToast(session, Toast{Kind: ToastSuccess, Message: "Signed in as " + identity.Name})
		c.redirect(ctx, session, "/")
		return
	}

	room, err := c.meet.CompleteSignIn(ctx.Request.Context(), code, identity)
	if err != nil {
		clearPendingRoom(session)
		view.toast(toastFor(err))
		c.render(ctx, session, statusFor(err), "landing", view)
		return
	}

	clearPendingRoom(session)
	c.redirect(ctx, session, converter.MeetingPath(room.Code))
}

// DismissSignIn is the modal's back action: the pending meeting is dropped.
func (c *MeetController) DismissSignIn(ctx *gin.Context) {
	session := sessions.Default(ctx)
	clearPendingRoom(session)
	c.redirect(ctx, session, "/")
}

// Join checks the submitted code and only navigates once the room is known
// to exist.
func (c *MeetController) Join(ctx *gin.Context) {
	session := sessions.Default(ctx)
	view := newLandingView(loadIdentity(session))

	var form joinForm
	if err := ctx.ShouldBind(&form); err != nil {
		view.Join = JoinFormView{RoomID: ctx.PostForm("roomId"), Error: msgInvalidCode}
		c.render(ctx, session, http.StatusUnprocessableEntity, "landing", view)
		return
	}

	room, err := c.meet.JoinMeeting(ctx.Request.Context(), form.RoomID)
	if err != nil {
		view.Join = JoinFormView{RoomID: form.RoomID}
		if errors.Is(err, service.ErrInvalidCode) {
			view.Join.Error = msgInvalidCode
		} else {
			view.toast(toastFor(err))
		}
		c.render(ctx, session, statusFor(err), "landing", view)
		return
	}

	c.redirect(ctx, session, converter.MeetingPath(room.Code))
}

func (c *MeetController) Meeting(ctx *gin.Context) {
	session := sessions.Default(ctx)

	room, err := c.meet.GetRoom(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		addToast(session, toastFor(err))
		c.redirect(ctx, session, "/")
		return
	}

	view := c.newMeetingView(ctx, room, loadIdentity(session))
	view.Toasts = takeToasts(session)
	if view.Identity.Name == "" {
		view.openModal()
	}
	c.render(ctx, session, http.StatusOK, "meeting", view)
}

// MeetingSignIn collects the identity of a visitor who joined by code and
// sends them back to the same meeting.
func (c *MeetController) MeetingSignIn(ctx *gin.Context) {
	session := sessions.Default(ctx)

	room, err := c.meet.GetRoom(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		addToast(session, toastFor(err))
		c.redirect(ctx, session, "/")
		return
	}

	var form signInForm
	bindErr := ctx.ShouldBind(&form)
	identity := domain.NewParticipant(form.Name, form.Email)
	if bindErr == nil {
		bindErr = identity.Validate()
	}
	if bindErr != nil {
		view := c.newMeetingView(ctx, room, identity)
		view.openModal()
		view.Modal.Errors = fieldErrors(bindErr)
		c.render(ctx, session, http.StatusUnprocessableEntity, "meeting", view)
		return
	}

	saveIdentity(session, identity)
	c.redirect(ctx, session, converter.MeetingPath(room.Code))
}

func (c *MeetController) newMeetingView(ctx *gin.Context, room *domain.Room, identity domain.Participant) MeetingView {
	api := converter.RoomToApi(room)
	return MeetingView{
		NavBarVisible: true,
		Identity:      identity,
		Room:          api,
		ShareURL:      shareURL(ctx, api.URL),
		SocketPath:    api.URL + "/ws",
		STUNServers:   c.stunServers,
	}
}

func (c *MeetController) render(ctx *gin.Context, session sessions.Session, status int, name string, view any) {
	if err := session.Save(); err != nil {
		c.log.Error("failed to save session", sl.Err(err))
	}
	ctx.HTML(status, name, view)
}

func (c *MeetController) redirect(ctx *gin.Context, session sessions.Session, location string) {
	if err := session.Save(); err != nil {
		c.log.Error("failed to save session", sl.Err(err))
	}
	ctx.Redirect(http.StatusSeeOther, location)
}

func shareURL(ctx *gin.Context, path string) string {
	scheme := "http"
	if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + ctx.Request.Host + path
}
