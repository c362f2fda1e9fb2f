package web

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/diarscribe/internal/logger"
)

const (
	progressBuffer = 64
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// progressHub splits batch stdout into lines and fans them out to the
// connected progress sockets. Slow subscribers miss lines instead of
// stalling the batch.
type progressHub struct {
	mu      sync.Mutex
	subs    map[chan string]struct{}
	partial []byte
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[chan string]struct{})}
}

func (h *progressHub) subscribe() chan string {
	ch := make(chan string, progressBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *progressHub) unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Write implements io.Writer for process.Command.Progress.
func (h *progressHub) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.partial = append(h.partial, p...)
	for {
		i := bytes.IndexByte(h.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(h.partial[:i]), "\r")
		h.partial = h.partial[i+1:]
		if strings.TrimSpace(line) == "" {
			continue
		}
		for ch := range h.subs {
			select {
			case ch <- line:
			default:
			}
		}
	}
	return len(p), nil
}

// reset drops any unterminated line left by a previous batch.
func (h *progressHub) reset() {
	h.mu.Lock()
	h.partial = nil
	h.mu.Unlock()
}

func (h *progressHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// progress streams batch output lines over a websocket until the client
// goes away or the server stops.
func (s *Server) progress(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logger.ErrorFields("upgrade", err))
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	// the read loop only exists to notice the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
