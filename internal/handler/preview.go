package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"predictor/internal/logger"
	hub "predictor/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PreviewWebsocketHandler registers viewers in the hub so they receive annotated frames.
func PreviewWebsocketHandler(previews *hub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !previews.Register(connection) {
			return
		}
		defer previews.Unregister(connection)

		// Viewers only listen; reading detects when they leave.
		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				return
			}
		}
	}
}
