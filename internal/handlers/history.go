package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"docrag/internal/contextutil"
	"docrag/internal/service"
)

// HistoryHandler handles chat history requests.
type HistoryHandler struct {
	historyService service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// HistoryItem is one entry of a history response.
type HistoryItem struct {
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryResponse lists a user's recent exchanges, newest first.
type HistoryResponse struct {
	History []HistoryItem `json:"history"`
}

// StatusResponse acknowledges a write.
type StatusResponse struct {
	Status string `json:"status"`
}

// Add records an exchange from the user_id, message and response URL parameters.
func (h *HistoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid user_id", "user_id", q.Get("user_id"))
		writeError(w, http.StatusBadRequest, "user_id must be an integer")
		return
	}

	err = h.historyService.AddEntry(ctx, service.AddHistoryRequest{
		UserID:   userID,
		Message:  q.Get("message"),
		Response: q.Get("response"),
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to save chat history")
		return
	}

	writeJSON(ctx, w, http.StatusOK, StatusResponse{Status: "success"})
}

// List returns the recent history of the user in the {user_id} path segment.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := chi.URLParam(r, "user_id")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid user_id", "user_id", raw)
		writeError(w, http.StatusBadRequest, "user_id must be an integer")
		return
	}

	entries, err := h.historyService.GetHistory(ctx, userID)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to read chat history")
		return
	}

	resp := HistoryResponse{History: make([]HistoryItem, len(entries))}
	for i, e := range entries {
		resp.History[i] = HistoryItem{Message: e.Message, Response: e.Response, Timestamp: e.Timestamp}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
