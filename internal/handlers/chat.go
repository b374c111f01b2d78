package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"docrag/internal/contextutil"
	"docrag/internal/service"
)

// maxChatBody bounds the JSON body of a chat request.
const maxChatBody = 1 << 20

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Query  string `json:"query"`
	UserID *int64 `json:"user_id,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Response string `json:"response"`
	Document string `json:"document,omitempty"`
}

// ServeHTTP handles HTTP requests for chat.
// The query comes from the "query" URL parameter or from a JSON body.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, err := decodeChatRequest(r)
	if err != nil {
		logger.WarnContext(ctx, "invalid chat request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, service.ChatRequest{
		Query:  req.Query,
		UserID: req.UserID,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ChatResponse{
		Response: svcResp.Response,
		Document: svcResp.Document,
	})
}

func decodeChatRequest(r *http.Request) (ChatRequest, error) {
	var req ChatRequest

	q := r.URL.Query()
	req.Query = q.Get("query")
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, err
		}
		req.UserID = &id
	}
	if req.Query != "" {
		return req, nil
	}

	var body ChatRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&body)
	if errors.Is(err, io.EOF) {
		// No body: the service rejects the empty query.
		return req, nil
	}
	if err != nil {
		return req, err
	}
	req.Query = body.Query
	if body.UserID != nil {
		req.UserID = body.UserID
	}
	return req, nil
}
