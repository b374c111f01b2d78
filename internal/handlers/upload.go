package handlers

import (
	"errors"
	"io"
	"net/http"

	"docrag/internal/contextutil"
	"docrag/internal/service"
)

// UploadHandler handles multipart document uploads.
type UploadHandler struct {
	documentService service.DocumentService
	maxBytes        int64
}

// NewUploadHandler creates a new UploadHandler. Bodies larger than maxBytes are rejected.
func NewUploadHandler(documentService service.DocumentService, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		documentService: documentService,
		maxBytes:        maxBytes,
	}
}

// UploadResponse represents the HTTP response payload for an upload.
type UploadResponse struct {
	Message      string `json:"message"`
	FileURL      string `json:"file_url"`
	Document     string `json:"document"`
	ChunksStored int    `json:"chunks_stored"`
	// ChunksSkipped counts chunks dropped because their embedding failed.
	ChunksSkipped int `json:"chunks_skipped"`
}

// ServeHTTP reads the "file" form field, stores it and indexes it.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		logger.WarnContext(ctx, "missing upload file", "error", err)
		writeError(w, http.StatusBadRequest, "A multipart field named file is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.WarnContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	svcResp, err := h.documentService.Upload(ctx, service.UploadRequest{
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to upload document")
		return
	}

	resp := UploadResponse{
		Message:      "File uploaded successfully",
		FileURL:      svcResp.FileURL,
		Document:     svcResp.Document,
		ChunksStored: svcResp.ChunksStored,
	}
	if svcResp.Report != nil {
		resp.ChunksSkipped = svcResp.Report.ChunksSkipped
		if resp.ChunksSkipped > 0 {
			logger.WarnContext(ctx, "document partially indexed", "document", svcResp.Document, "chunks_skipped", resp.ChunksSkipped)
		}
	}

	writeJSON(ctx, w, http.StatusOK, resp)
}
