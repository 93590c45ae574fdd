package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/roomcode"
	"github.com/immxrtalbeast/axenix_meet/internal/service"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/sl"
)

const (
	msgRoomNotFound = "Room does not exist"
	msgRoomExpired  = "This meeting has ended"
	msgInvalidCode  = "Enter a valid meeting code"
	msgInternal     = "Something went wrong, please try again"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, domain.ErrInvalidParticipant),
		errors.Is(err, service.ErrInvalidChatMessage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrPeerNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRoomExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrIdentityRequired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotCreator):
		return http.StatusForbidden
	case errors.Is(err, service.ErrWatchNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, service.ErrCodeExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes err as a JSON error. Internal details are logged
// and never sent to the client.
func handleServiceError(ctx *gin.Context, log *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("path", ctx.FullPath()),
			slog.Int("status", status),
			sl.Err(err),
		)
		ctx.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

// toastFor turns a join failure into the notification shown on the page.
func toastFor(err error) Toast {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		return Toast{Kind: ToastError, Message: msgRoomNotFound}
	case errors.Is(err, service.ErrRoomExpired):
		return Toast{Kind: ToastError, Message: msgRoomExpired}
	case errors.Is(err, service.ErrInvalidCode):
		return Toast{Kind: ToastError, Message: msgInvalidCode}
	default:
		return Toast{Kind: ToastError, Message: msgInternal}
	}
}

// fieldErrors maps validation failures to form field messages keyed by the
// lower-cased struct field name.
func fieldErrors(err error) map[string]string {
	result := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		result["form"] = "Check the form and try again"
		return result
	}

	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if _, seen := result[field]; seen {
			continue
		}
		switch fe.Tag() {
		case "required":
			result[field] = "This field is required"
		case "email":
			result[field] = "Enter a valid email address"
		case "max":
			result[field] = "This value is too long"
		case roomcode.Tag:
			result[field] = msgInvalidCode
		default:
			result[field] = "This value is not valid"
		}
	}
	return result
}
