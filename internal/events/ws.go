// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"net/http"
	"slices"
	"time"

	xglog "github.com/attendify/presence/internal/log"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxReadBytes = 512
)

// WSHandler streams hub events as JSON text frames. Clients pick topics
// with repeated ?topic= parameters.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	ping     time.Duration
}

// NewWSHandler accepts any origin when allowedOrigins is empty.
func NewWSHandler(hub *Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		logger: xglog.WithComponent("events.ws"),
		ping:   pingInterval,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		h.logger.Debug().Err(err).Str(xglog.FieldEvent, "events.upgrade_failed").Msg("websocket upgrade failed")
		return
	}

	topics := r.URL.Query()["topic"]
	sub := h.hub.Subscribe(topics...)
	logger := xglog.WithContext(r.Context(), h.logger)
	logger.Info().Str(xglog.FieldEvent, "events.subscribed").Strs("topics", topics).
		Str("remote", r.RemoteAddr).Msg("event subscriber connected")

	readDone := make(chan struct{})
	go h.readLoop(conn, readDone)

	h.writeLoop(conn, sub, readDone)

	_ = sub.Close()
	_ = conn.Close()
	<-readDone
	logger.Info().Str(xglog.FieldEvent, "events.unsubscribed").Msg("event subscriber disconnected")
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *WSHandler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxReadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *Subscription, readDone <-chan struct{}) {
	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}
