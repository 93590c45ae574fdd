package http

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
)

const sessionName = "meet_session"

const (
	sessionKeyName    = "participant_name"
	sessionKeyEmail   = "participant_email"
	sessionKeyPending = "pending_room"
)

func sessionString(s sessions.Session, key string) string {
	v, _ := s.Get(key).(string)
	return v
}

// loadIdentity returns the name/email collected by the sign-in modal.
func loadIdentity(s sessions.Session) domain.Participant {
	return domain.NewParticipant(sessionString(s, sessionKeyName), sessionString(s, sessionKeyEmail))
}

func saveIdentity(s sessions.Session, p domain.Participant) {
	s.Set(sessionKeyName, p.Name)
	s.Set(sessionKeyEmail, p.Email)
}

// pendingRoom is the code generated by "create meeting" while the visitor
// still had to identify themselves.
func pendingRoom(s sessions.Session) string {
	return sessionString(s, sessionKeyPending)
}

func setPendingRoom(s sessions.Session, code string) {
	s.Set(sessionKeyPending, code)
}

func clearPendingRoom(s sessions.Session) {
	s.Delete(sessionKeyPending)
}

// Toasts travel as "kind|message" flashes so the cookie store needs no gob types.
func addToast(s sessions.Session, t Toast) {
	s.AddFlash(t.Kind + "|" + t.Message)
}

func takeToasts(s sessions.Session) []Toast {
	flashes := s.Flashes()
	toasts := make([]Toast, 0, len(flashes))
	for _, f := range flashes {
		raw, ok := f.(string)
		if !ok {
			continue
		}
		kind, msg, found := strings.Cut(raw, "|")
		if !found {
			kind, msg = ToastInfo, raw
		}
		toasts = append(toasts, Toast{Kind: kind, Message: msg})
	}
	return toasts
}
