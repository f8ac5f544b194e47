package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ashureev/scripture-chat/internal/identity"
	"github.com/ashureev/scripture-chat/internal/widget"
	"github.com/coder/websocket"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketHandler streams page state to the widget front end.
type WebSocketHandler struct {
	*Handler
	allowedOrigins []string
	isDev          bool
	eventBuffer    int
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(base *Handler, allowedOrigins []string, isDev bool, eventBuffer int) *WebSocketHandler {
	return &WebSocketHandler{
		Handler:        base,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
		eventBuffer:    eventBuffer,
	}
}

// wsMessage is a frame sent by the client.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// snapshotFrame is the first frame of every connection.
type snapshotFrame struct {
	Type  string        `json:"type"`
	State stateResponse `json:"state"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pageID := identity.PageIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "page_id", pageID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	wdg, ok := h.page(w, r)
	if !ok {
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "page_id", pageID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "page_id", pageID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snap, events, unsubscribe := wdg.SubscribeWithSnapshot(h.eventBuffer)
	defer unsubscribe()

	if err := writeJSON(ctx, ws, snapshotFrame{Type: "snapshot", State: stateResponse{Snapshot: snap, UI: h.uiConfig()}}); err != nil {
		slog.Debug("Failed to send snapshot", "error", err, "page_id", pageID)
		return
	}

	go func() {
		defer cancel()
		h.inputLoop(ctx, ws, wdg)
	}()

	h.outputLoop(ctx, ws, events, pageID)
	slog.Info("Widget stream ended", "page_id", pageID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, wdg *widget.Widget) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "page_id", wdg.ID())
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "page_id", wdg.ID())
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed websocket frame", "page_id", wdg.ID())
			continue
		}

		// Every frame counts as page activity.
		if _, err := h.registry.Get(wdg.ID()); err != nil {
			return
		}

		switch msg.Type {
		case "ping":
			if err := writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case "submit":
			// The turn outlives this frame; results arrive as events.
			content := msg.Content
			go func() {
				accepted := wdg.Submit(ctx, content)
				if err := writeJSON(ctx, ws, map[string]interface{}{"type": "submitted", "accepted": accepted}); err != nil {
					slog.Debug("Failed to send submit result", "error", err)
				}
			}()
		}
	}
}

func (h *WebSocketHandler) outputLoop(ctx context.Context, ws *websocket.Conn, events <-chan widget.Event, pageID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				// Page closed or expired.
				return
			}
			if err := writeJSON(ctx, ws, ev); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "page_id", pageID)
				}
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wsWriteTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
