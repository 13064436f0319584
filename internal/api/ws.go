package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"resizewatch/internal/resize"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
	wsPendingFrames   = 16
)

type resizeNotice struct {
	sequence int64
	at       time.Time
}

// handleResizeStream sends one frame per resize notification until the
// client disconnects. Notifications that arrive while the client is behind
// are dropped.
func (s *server) handleResizeStream(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "watcher unavailable")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, s.allowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", map[string]string{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	notices := make(chan resizeNotice, wsPendingFrames)
	var sequence atomic.Int64
	var dropped atomic.Int64
	listener, err := s.watcher.OnResize(func(*resize.Watcher) {
		notice := resizeNotice{sequence: sequence.Add(1), at: time.Now().UTC()}
		select {
		case notices <- notice:
		default:
			dropped.Add(1)
		}
	})
	if err != nil {
		s.logger.Error("resize subscription failed", map[string]string{"error": err.Error()})
		return
	}
	defer func() {
		_ = s.watcher.Off(resize.EventResize, listener)
		if count := dropped.Load(); count > 0 {
			s.logger.Warn("resize frames dropped", map[string]string{
				"remote_addr": r.RemoteAddr,
				"dropped":     strconv.FormatInt(count, 10),
			})
		}
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("resize stream opened", map[string]string{"remote_addr": r.RemoteAddr})
	for {
		select {
		case notice := <-notices:
			frame, err := encodeResizeFrame(notice.sequence, s.watcher.Sample(), notice.at)
			if err != nil {
				s.logger.Error("encode resize frame failed", map[string]string{"error": err.Error()})
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-closed:
			s.logger.Debug("resize stream closed", map[string]string{"remote_addr": r.RemoteAddr})
			return
		case <-r.Context().Done():
			return
		}
	}
}

func isOriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := parsed.Hostname()
	if originHost == "" {
		return false
	}

	if len(allowed) > 0 {
		for _, allowedOrigin := range allowed {
			if allowedOrigin == "*" || strings.EqualFold(origin, allowedOrigin) || strings.EqualFold(originHost, allowedOrigin) {
				return true
			}
		}
		return false
	}

	return strings.EqualFold(originHost, hostOnly(r.Host))
}

func hostOnly(hostport string) string {
	if strings.HasPrefix(hostport, "[") {
		if end := strings.Index(hostport, "]"); end > 0 {
			return hostport[1:end]
		}
	}
	if index := strings.LastIndex(hostport, ":"); index > 0 {
		return hostport[:index]
	}
	return hostport
}
