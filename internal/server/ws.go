package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pinchvol/internal/logger"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarksHandler pushes every published Status to websocket clients as JSON.
type LandmarksHandler struct {
	hub *Hub
	log *logger.Logger
}

// NewLandmarksHandler creates a new LandmarksHandler reading from hub.
func NewLandmarksHandler(hub *Hub, log *logger.Logger) *LandmarksHandler {
	return &LandmarksHandler{hub: hub, log: log}
}

// ServeHTTP upgrades the connection and writes statuses until either side closes.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	statuses, cancel := h.hub.Subscribe()
	defer cancel()

	// The read loop only notices the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case st := <-statuses:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				h.log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}
