package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks docrag/internal/service DocumentService

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docrag/internal/blobstore"
	"docrag/internal/contextutil"
	"docrag/internal/indexer"
	"docrag/internal/rag"
)

// AllowedTypesMessage is the validation message for unsupported uploads.
const AllowedTypesMessage = "Only PDF, DOCX, XLSX and MD files are allowed"

// Ingester stores a document in the vector store.
type Ingester interface {
	Supports(fileName string) bool
	Ingest(ctx context.Context, fileName string, data []byte) (*indexer.IngestReport, error)
}

// UploadRequest is an uploaded document.
type UploadRequest struct {
	FileName string
	Data     []byte
}

// UploadResponse describes a stored and indexed document.
type UploadResponse struct {
	FileURL      string
	Document     string
	ChunksStored int
	Report       *indexer.IngestReport
}

// DocumentService accepts document uploads.
type DocumentService interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResponse, error)
}

type documentService struct {
	blobs    blobstore.Store
	ingester Ingester
	now      func() time.Time
	newID    func() string
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(blobs blobstore.Store, ingester Ingester) DocumentService {
	return &documentService{
		blobs:    blobs,
		ingester: ingester,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Upload keeps the original bytes in the blob store, then ingests the document.
func (s *documentService) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	fileName := filepath.Base(strings.TrimSpace(req.FileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		return UploadResponse{}, &ValidationError{Field: "file", Message: "file name is required"}
	}
	if !s.ingester.Supports(fileName) {
		logger.WarnContext(ctx, "rejected upload type", "file_name", fileName)
		return UploadResponse{}, &ValidationError{Field: "file", Message: AllowedTypesMessage}
	}
	if len(req.Data) == 0 {
		return UploadResponse{}, &ValidationError{Field: "file", Message: "file is empty"}
	}

	blobName := s.blobName(fileName)
	fileURL, err := s.blobs.Put(ctx, blobName, req.Data)
	if err != nil {
		logger.ErrorContext(ctx, "failed to store upload", "blob", blobName, "error", err)
		return UploadResponse{}, classify(ErrExternalService, err, "failed to store upload")
	}
	logger.InfoContext(ctx, "upload stored", "file_name", fileName, "blob", blobName, "size", len(req.Data))

	report, err := s.ingester.Ingest(ctx, fileName, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrExtraction):
			return UploadResponse{}, classify(ErrUnprocessable, err, "failed to read document")
		case errors.Is(err, rag.ErrEmbedding):
			return UploadResponse{}, classify(ErrExternalService, err, "failed to embed document")
		default:
			return UploadResponse{}, WrapError(err, "failed to ingest document")
		}
	}

	return UploadResponse{
		FileURL:      fileURL,
		Document:     fileName,
		ChunksStored: report.ChunksEmbedded,
		Report:       report,
	}, nil
}

// blobName builds document_<UTC yyyymmddHHMMSS>_<8 hex>.<ext>.
func (s *documentService) blobName(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	suffix := strings.ReplaceAll(s.newID(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("document_%s_%s.%s", s.now().UTC().Format("20060102150405"), suffix, ext)
}
