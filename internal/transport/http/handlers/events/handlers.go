package eventshandler

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"hrsync/internal/platform/events"
)

const (
	subscriberBuffer = 32
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

type Hub interface {
	Subscribe(buffer int) *events.Subscription
	Unsubscribe(sub *events.Subscription)
}

type Handler struct {
	Hub      Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from the listed origins; "*" accepts any.
func NewHandler(hub Hub, allowedOrigins []string) *Handler {
	h := &Handler{Hub: hub}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	sub := h.Hub.Subscribe(subscriberBuffer)
	slog.Info("websocket client connected", "remote", r.RemoteAddr)
	defer func() {
		h.Hub.Unsubscribe(sub)
		_ = conn.Close()
		slog.Info("websocket client disconnected", "remote", r.RemoteAddr)
	}()

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	welcome := events.Event{Type: events.TypeWelcome, Data: "connected to attendance events", OccurredAt: time.Now().UTC()}
	if err := writeEvent(conn, welcome); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if err := writeEvent(conn, evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are
// processed, and signals when the peer goes away.
func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, evt events.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(evt); err != nil {
		slog.Debug("websocket write failed", "err", err)
		return err
	}
	return nil
}
