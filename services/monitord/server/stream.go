package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"cavernlsd/services/monitor"
)

const (
	wsWriteTimeout = 10 * time.Second
	streamBuffer   = 8
)

// hub fans poll results out to websocket subscribers. A subscriber that
// falls behind by more than streamBuffer polls is dropped.
type hub struct {
	mu   sync.Mutex
	subs map[chan []monitor.View]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan []monitor.View]struct{})}
}

func (h *hub) subscribe() (<-chan []monitor.View, func()) {
	ch := make(chan []monitor.View, streamBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *hub) publish(views []monitor.View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- views:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Publish streams a completed poll to websocket subscribers.
func (s *Server) Publish(snaps []monitor.Snapshot) {
	s.hub.publish(s.views(snaps))
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())

	updates, cancel := s.hub.subscribe()
	defer cancel()

	if err := writeViews(ctx, conn, s.views(s.source.Latest())); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case views, ok := <-updates:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := writeViews(ctx, conn, views); err != nil {
				s.logger.Debug("snapshot stream closed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func writeViews(ctx context.Context, conn *websocket.Conn, views []monitor.View) error {
	data, err := json.Marshal(views)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
