package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mecacaraudio/scoring-engine/scoring"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Public read-only feed; the frontend origin list is enforced by
		// the CORS layer for the REST surface.
		return true
	},
}

type WebSocketHandler struct {
	hub *scoring.Hub
}

func NewWebSocketHandler(hub *scoring.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeStandings subscribes a client to live updates for one season.
func (h *WebSocketHandler) ServeStandings(w http.ResponseWriter, r *http.Request) {
	seasonID := chi.URLParam(r, "seasonID")
	if seasonID == "" {
		http.Error(w, "Missing seasonID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "seasonId", seasonID, "error", err)
		return
	}

	client := &scoring.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: "season_" + seasonID,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
