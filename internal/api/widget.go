package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/scripture-chat/internal/domain"
	"github.com/ashureev/scripture-chat/internal/identity"
	"github.com/ashureev/scripture-chat/internal/pages"
	"github.com/ashureev/scripture-chat/internal/widget"
	"github.com/go-chi/chi/v5"
)

// maxChatBody bounds the size of a chat request.
const maxChatBody = 64 << 10

// WidgetHandler serves the page-scoped widget endpoints.
type WidgetHandler struct {
	*Handler
}

// NewWidgetHandler creates a widget handler.
func NewWidgetHandler(base *Handler) *WidgetHandler {
	return &WidgetHandler{Handler: base}
}

// UIConfig is the presentation text the front end renders.
type UIConfig struct {
	Title            string   `json:"title"`
	Placeholder      string   `json:"placeholder"`
	ExampleQuestions []string `json:"example_questions"`
}

type stateResponse struct {
	widget.Snapshot
	UI UIConfig `json:"ui"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// RegisterRoutes registers widget routes.
func (h *WidgetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Post("/session", h.OpenSession)
		r.Delete("/session", h.CloseSession)
		r.Get("/state", h.GetState)
		r.Get("/messages", h.GetMessages)
		r.Post("/chat", h.Chat)
		r.Get("/diagnostics", h.GetDiagnostics)
		r.Get("/objects", h.GetObjects)
		r.Delete("/objects", h.DeleteObjects)
	})
}

func (h *Handler) uiConfig() UIConfig {
	questions := h.persona.ExampleQuestions
	if questions == nil {
		questions = []string{}
	}
	return UIConfig{
		Title:            h.persona.Title,
		Placeholder:      h.persona.Placeholder,
		ExampleQuestions: questions,
	}
}

func (h *Handler) state(wdg *widget.Widget) stateResponse {
	return stateResponse{Snapshot: wdg.Snapshot(), UI: h.uiConfig()}
}

// GetConfig returns the persona presentation text for the frontend.
func (h *WidgetHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.uiConfig())
}

// OpenSession opens a page and initializes its agent. The response is sent
// once initialization has settled, successfully or not.
func (h *WidgetHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	wdg := h.registry.Open(r.Context())
	slog.Info("Widget page opened", "page_id", wdg.ID(), "ip", identity.IPFromRequest(r), "status", wdg.Session().Status)
	JSON(w, http.StatusCreated, map[string]interface{}{
		"page_id": wdg.ID(),
		"state":   h.state(wdg),
	})
}

// CloseSession tears down the page's remote objects and forgets the page.
func (h *WidgetHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	pageID := identity.PageIDFromContext(r.Context())
	if pageID == "" {
		Error(w, http.StatusBadRequest, "missing page id")
		return
	}
	result, err := h.registry.Close(r.Context(), pageID)
	if errors.Is(err, pages.ErrPageNotFound) {
		Error(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "closed",
		"attempted": result.Attempted,
		"deleted":   result.Deleted,
		"failed":    result.Failed,
	})
}

// GetState returns a full snapshot of the page.
func (h *WidgetHandler) GetState(w http.ResponseWriter, r *http.Request) {
	wdg, ok := h.page(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.state(wdg))
}

// GetMessages returns the messages after the first ?after=n.
func (h *WidgetHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	wdg, ok := h.page(w, r)
	if !ok {
		return
	}

	after := 0
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = n
	}

	msgs := wdg.MessagesSince(after)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"next":     after + len(msgs),
		"pending":  wdg.Pending(),
	})
}

// Chat submits one user turn and responds once it has resolved. Submissions
// that are dropped (blank text, session not ready, turn in flight) are
// reported with accepted=false.
func (h *WidgetHandler) Chat(w http.ResponseWriter, r *http.Request) {
	wdg, ok := h.page(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accepted := wdg.Submit(r.Context(), req.Message)
	if !accepted {
		slog.Debug("Chat submission dropped", "page_id", wdg.ID(), "status", wdg.Session().Status, "pending", wdg.Pending())
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"accepted": accepted,
		"state":    h.state(wdg),
	})
}

// GetDiagnostics returns the outbound call records, most recent first.
func (h *WidgetHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	wdg, ok := h.page(w, r)
	if !ok {
		return
	}
	calls := wdg.Diagnostics()
	if calls == nil {
		calls = []domain.APICallRecord{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"calls": calls})
}

// GetObjects returns the remote resources created by the page.
func (h *WidgetHandler) GetObjects(w http.ResponseWriter, r *http.Request) {
	wdg, ok := h.page(w, r)
	if !ok {
		return
	}
	objects := wdg.Objects()
	if objects == nil {
		objects = []domain.CreatedObjectRef{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"objects": objects})
}

// DeleteObjects deletes every remote resource the page created. Concurrent
// requests for the same page are serialized by the widget; a request that
// waited behind another one finds nothing left to delete.
func (h *WidgetHandler) DeleteObjects(w http.ResponseWriter, r *http.Request) {
	wdg, ok := h.page(w, r)
	if !ok {
		return
	}

	result := wdg.DeleteAllObjects(r.Context())
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":     "deleted",
		"attempted":  result.Attempted,
		"deleted":    result.Deleted,
		"failed":     result.Failed,
		"failed_ids": result.FailedIDs,
	})
}
