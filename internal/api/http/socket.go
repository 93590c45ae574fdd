package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = (socketPongWait * 9) / 10
	socketReadLimit  = 64 << 10
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			return sameHost(r, origin)
		},
	}
}

// sameHost reports whether origin is the host serving r.
func sameHost(r *http.Request, origin string) bool {
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// socketWriter serialises writes; gorilla connections allow one writer at a time.
type socketWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newSocketWriter(conn *websocket.Conn) *socketWriter {
	return &socketWriter{conn: conn}
}

func (w *socketWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	return w.conn.WriteJSON(v)
}

func (w *socketWriter) Ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait))
}

func (w *socketWriter) Close(code int, reason string) {
	w.mu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(socketWriteWait))
	w.mu.Unlock()
	_ = w.conn.Close()
}

// prepareRead sets the read limit and keeps the deadline moving on pongs.
func prepareRead(conn *websocket.Conn) {
	conn.SetReadLimit(socketReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})
}
