package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/repository"
	"github.com/immxrtalbeast/axenix_meet/internal/roomcode"
	"github.com/immxrtalbeast/axenix_meet/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = domain.NewParticipant("Ada", "ada@example.com")

type testServer struct {
	router *gin.Engine
	repo   *repository.InMemoryRoomRepository
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewInMemoryRoomRepository()
	meet := service.NewMeetService(repo, log, service.MeetOptions{RoomLifetime: time.Hour})
	signal := service.NewSignalService(meet, log)

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "test-secret"
	}

	router := SetupRouter(cfg, log,
		NewMeetController(meet, log, []string{"stun:stun.example.com:3478"}),
		NewRoomController(meet, signal, log, nil),
		NewSignalController(meet, signal, log, nil),
	)
	return &testServer{router: router, repo: repo}
}

func (s *testServer) seedRoom(t *testing.T) *domain.Room {
	t.Helper()
	room := domain.NewRoom(roomcode.New(), ada, time.Hour)
	require.NoError(t, s.repo.Create(context.Background(), room))
	return room
}

func (s *testServer) roomCount(t *testing.T) int {
	t.Helper()
	rooms, err := s.repo.List(context.Background())
	require.NoError(t, err)
	return len(rooms)
}

// browser keeps the session cookie between requests like a real client would.
type browser struct {
	server  *testServer
	cookies map[string]*http.Cookie
}

func (s *testServer) browser() *browser {
	return &browser{server: s, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.server.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return b.do(req)
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLandingHidesNavBar(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	w := srv.browser().get("/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-page="landing"`)
	assert.Contains(t, w.Body.String(), "Enter the Meeting Code")
	assert.NotContains(t, w.Body.String(), `data-navbar="visible"`)
	assert.NotContains(t, w.Body.String(), `data-modal="open"`)
}

func TestJoinUnknownRoomShowsToastWithoutRedirect(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	w := srv.browser().postForm("/join", url.Values{"roomId": {roomcode.New()}})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.Contains(t, w.Body.String(), `data-toast="error"`)
	assert.Contains(t, w.Body.String(), "Room does not exist")
	assert.Contains(t, w.Body.String(), `data-page="landing"`)
}

func TestJoinExistingRoomRedirects(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := srv.seedRoom(t)

	w := srv.browser().postForm("/join", url.Values{"roomId": {room.Code}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/meet/"+room.Code, w.Header().Get("Location"))
}

func TestJoinAcceptsPastedLink(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := srv.seedRoom(t)

	w := srv.browser().postForm("/join", url.Values{"roomId": {" https://meet.example.com/meet/" + room.Code + " "}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/meet/"+room.Code, w.Header().Get("Location"))
}

func TestJoinInvalidCodeShowsFormError(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	for _, code := range []string{"", "short", "has spaces!", "abcdefghijk"} {
		w := srv.browser().postForm("/join", url.Values{"roomId": {code}})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, code)
		assert.Empty(t, w.Header().Get("Location"), code)
		assert.Contains(t, w.Body.String(), `data-error="roomId"`, code)
	}
}

func TestCreateMeetingWithoutIdentityOpensModal(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	w := srv.browser().postForm("/meet/new", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.Contains(t, w.Body.String(), `data-modal="open"`)
	assert.Contains(t, w.Body.String(), "data-modal-back")
	assert.Equal(t, 0, srv.roomCount(t))
}

func TestSignInCreatesPendingRoom(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	b := srv.browser()

	w := b.postForm("/meet/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, srv.roomCount(t))

	w = b.postForm("/signin", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/meet/"), location)
	code := strings.TrimPrefix(location, "/meet/")
	assert.NoError(t, roomcode.Validate(code))

	room, err := srv.repo.Get(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "Ada", room.CreatorName)
	assert.Equal(t, "ada@example.com", room.CreatorEmail)
	assert.Equal(t, "rooms/"+code+"/participants", room.ParticipantsRef)

	// identity is remembered, so the next meeting skips the modal
	w = b.postForm("/meet/new", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.NotContains(t, w.Body.String(), `data-modal="open"`)
	assert.Equal(t, 2, srv.roomCount(t))
}

func TestSignInRejectsInvalidIdentity(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	b := srv.browser()
	b.postForm("/meet/new", nil)

	w := b.postForm("/signin", url.Values{"name": {"Ada"}, "email": {"not-an-email"}})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `data-modal="open"`)
	assert.Contains(t, w.Body.String(), `data-error="email"`)
	assert.NotContains(t, w.Body.String(), `data-error="name"`)
	assert.Equal(t, 0, srv.roomCount(t))

	w = b.postForm("/signin", url.Values{"name": {"   "}, "email": {"ada@example.com"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `data-error="name"`)
	assert.Equal(t, 0, srv.roomCount(t))
}

func TestDismissSignInDropsPendingRoom(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	b := srv.browser()
	b.postForm("/meet/new", nil)

	w := b.postForm("/signin/dismiss", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	// signing in afterwards no longer creates the abandoned meeting
	w = b.postForm("/signin", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, 0, srv.roomCount(t))

	w = b.get("/")
	assert.Contains(t, w.Body.String(), "Signed in as Ada")

	// toasts are shown once
	w = b.get("/")
	assert.NotContains(t, w.Body.String(), "Signed in as Ada")
}

func TestMeetingPage(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := srv.seedRoom(t)
	b := srv.browser()
	b.postForm("/signin", url.Values{"name": {"Grace"}, "email": {"grace@example.com"}})

	w := b.get("/meet/" + room.Code)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-navbar="visible"`)
	assert.Contains(t, w.Body.String(), `data-room="`+room.Code+`"`)
	assert.Contains(t, w.Body.String(), "stun:stun.example.com:3478")
	assert.NotContains(t, w.Body.String(), `data-modal="open"`)
}

func TestMeetingPageAsksVisitorForIdentity(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := srv.seedRoom(t)
	b := srv.browser()

	w := b.get("/meet/" + room.Code)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-modal="open"`)
	assert.Contains(t, w.Body.String(), `action="/meet/`+room.Code+`/signin"`)
	assert.NotContains(t, w.Body.String(), "new WebSocket")

	w = b.postForm("/meet/"+room.Code+"/signin", url.Values{"name": {"Grace"}, "email": {"bad"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `data-error="email"`)

	w = b.postForm("/meet/"+room.Code+"/signin", url.Values{"name": {"Grace"}, "email": {"grace@example.com"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/meet/"+room.Code, w.Header().Get("Location"))

	w = b.get("/meet/" + room.Code)
	assert.NotContains(t, w.Body.String(), `data-modal="open"`)
	assert.Contains(t, w.Body.String(), "new WebSocket")

	// signing in to a meeting does not create one
	assert.Equal(t, 1, srv.roomCount(t))
}

func TestRouterWithoutAllowedOrigins(t *testing.T) {
	var srv *testServer
	require.NotPanics(t, func() { srv = newTestServer(t, RouterConfig{AllowedOrigins: nil}) })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	w := srv.browser().do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://"+req.Host)
	w = srv.browser().do(req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterWithAllowedOrigins(t *testing.T) {
	srv := newTestServer(t, RouterConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := srv.browser().do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMeetingPageIsNotRateLimited(t *testing.T) {
	srv := newTestServer(t, RouterConfig{JoinPerMinute: 1, JoinBurst: 1})
	room := srv.seedRoom(t)
	b := srv.browser()

	w := b.postForm("/join", url.Values{"roomId": {room.Code}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	// following the redirect does not spend another attempt
	assert.Equal(t, http.StatusOK, b.get(w.Header().Get("Location")).Code)
	assert.Equal(t, http.StatusOK, b.get("/meet/"+room.Code).Code)
}

func TestMeetingPageForMissingRoomRedirectsWithToast(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	b := srv.browser()

	w := b.get("/meet/" + roomcode.New())
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = b.get("/")
	assert.Contains(t, w.Body.String(), "Room does not exist")
}

func TestAPICreateRoom(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	b := srv.browser()

	w := b.sendJSON(http.MethodPost, "/api/rooms", `{}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["needs_identity"])
	assert.NoError(t, roomcode.Validate(body["code"].(string)))
	assert.Equal(t, 0, srv.roomCount(t))

	w = b.sendJSON(http.MethodPost, "/api/rooms", `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	room := decode(t, w)["room"].(map[string]any)
	assert.Equal(t, "Ada", room["creator_name"])
	assert.NotContains(t, room, "creator_email")
	assert.Equal(t, "/meet/"+room["code"].(string), room["url"])
	assert.Equal(t, 1, srv.roomCount(t))

	w = b.sendJSON(http.MethodPost, "/api/rooms", `{"name":"Ada","email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAPIJoinAndGetRoom(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := srv.seedRoom(t)
	b := srv.browser()

	w := b.sendJSON(http.MethodPost, "/api/rooms/join", `{"room_id":"`+room.Code+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/meet/"+room.Code, decode(t, w)["redirect"])

	w = b.sendJSON(http.MethodPost, "/api/rooms/join", `{"room_id":"`+roomcode.New()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.ErrRoomNotFound.Error(), decode(t, w)["error"])

	w = b.sendJSON(http.MethodPost, "/api/rooms/join", `{"room_id":"bad"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = b.get("/api/rooms/" + room.Code)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, room.Code, decode(t, w)["room"].(map[string]any)["code"])

	w = b.get("/api/rooms/" + roomcode.New())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = b.get("/api/rooms/not-a-code")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAPIExpiredRoomIsGone(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := domain.NewRoom(roomcode.New(), ada, time.Hour)
	room.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, srv.repo.Create(context.Background(), room))

	w := srv.browser().get("/api/rooms/" + room.Code)
	assert.Equal(t, http.StatusGone, w.Code)

	w = srv.browser().get("/api/rooms")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["rooms"])
}

func TestAPICloseRoom(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := srv.seedRoom(t)
	b := srv.browser()

	w := b.get("/api/rooms")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["rooms"], 1)

	w = b.sendJSON(http.MethodDelete, "/api/rooms/"+room.Code, `{"email":"grace@example.com"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, srv.roomCount(t))

	w = b.sendJSON(http.MethodDelete, "/api/rooms/"+room.Code, `{"email":"ADA@example.com"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, srv.roomCount(t))

	w = b.sendJSON(http.MethodDelete, "/api/rooms/"+room.Code, `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIListPeersOfQuietMeeting(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})
	room := srv.seedRoom(t)

	w := srv.browser().get("/api/rooms/" + room.Code + "/peers")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["peers"])
}

func TestJoinIsRateLimited(t *testing.T) {
	srv := newTestServer(t, RouterConfig{JoinPerMinute: 1, JoinBurst: 2})
	b := srv.browser()
	code := roomcode.New()

	assert.Equal(t, http.StatusNotFound, b.postForm("/join", url.Values{"roomId": {code}}).Code)
	assert.Equal(t, http.StatusNotFound, b.postForm("/join", url.Values{"roomId": {code}}).Code)
	assert.Equal(t, http.StatusTooManyRequests, b.postForm("/join", url.Values{"roomId": {code}}).Code)

	// other routes are not throttled
	assert.Equal(t, http.StatusOK, b.get("/").Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	w := srv.browser().get("/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}
