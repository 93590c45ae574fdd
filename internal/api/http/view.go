package http

import (
	"github.com/immxrtalbeast/axenix_meet/internal/api/http/converter"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
)

const (
	ToastError   = "error"
	ToastInfo    = "info"
	ToastSuccess = "success"
)

// Toast is a non-blocking notification shown once.
type Toast struct {
	Kind    string
	Message string
}

// ModalView is the identity dialog. Action is where the form posts.
type ModalView struct {
	Open        bool
	Action      string
	BackAllowed bool
	Name        string
	Email       string
	Errors      map[string]string
}

type JoinFormView struct {
	RoomID string
	Error  string
}

// LandingView is the page state of the landing screen. The navigation bar
// stays hidden there because no room is being shown.
type LandingView struct {
	NavBarVisible bool
	Identity      domain.Participant
	Modal         ModalView
	Join          JoinFormView
	Toasts        []Toast
}

type MeetingView struct {
	NavBarVisible bool
	Identity      domain.Participant
	Room          *converter.RoomResponse
	Modal         ModalView
	ShareURL      string
	SocketPath    string
	STUNServers   []string
	Toasts        []Toast
}

func newLandingView(identity domain.Participant) LandingView {
	return LandingView{
		NavBarVisible: false,
		Identity:      identity,
	}
}

// openModal shows the identity dialog prefilled with what is already known.
func (v *LandingView) openModal(backAllowed bool) {
	v.Modal = newModal("/signin", backAllowed, v.Identity)
}

func (v *LandingView) toast(t Toast) {
	v.Toasts = append(v.Toasts, t)
}

// openModal asks a visitor who arrived by code for the name shown to the
// other participants.
func (v *MeetingView) openModal() {
	v.Modal = newModal(v.Room.URL+"/signin", true, v.Identity)
}

func newModal(action string, backAllowed bool, identity domain.Participant) ModalView {
	return ModalView{
		Open:        true,
		Action:      action,
		BackAllowed: backAllowed,
		Name:        identity.Name,
		Email:       identity.Email,
	}
}
