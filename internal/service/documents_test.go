package service_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"docrag/internal/indexer"
	"docrag/internal/rag"
	"docrag/internal/service"
)

type fakeBlobs struct {
	names []string
	err   error
}

func (f *fakeBlobs) Put(_ context.Context, name string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "bolt://documents/" + name, nil
}

type fakeIngester struct {
	report *indexer.IngestReport
	err    error
	files  []string
}

func (f *fakeIngester) Supports(fileName string) bool {
	return indexer.DefaultExtractors().Supports(fileName)
}

func (f *fakeIngester) Ingest(_ context.Context, fileName string, _ []byte) (*indexer.IngestReport, error) {
	f.files = append(f.files, fileName)
	return f.report, f.err
}

var blobNamePattern = regexp.MustCompile(`^document_\d{14}_[0-9a-f]{8}\.pdf$`)

func TestDocumentService_Upload(t *testing.T) {
	blobs := &fakeBlobs{}
	ingester := &fakeIngester{report: &indexer.IngestReport{FileName: "report.pdf", State: indexer.StateStored, ChunksEmbedded: 3}}
	svc := service.NewDocumentService(blobs, ingester)

	resp, err := svc.Upload(testContext(), service.UploadRequest{FileName: "report.PDF", Data: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(blobs.names) != 1 {
		t.Fatalf("blob store called %d times, want 1", len(blobs.names))
	}
	if !blobNamePattern.MatchString(blobs.names[0]) {
		t.Errorf("blob name %q does not match %s", blobs.names[0], blobNamePattern)
	}
	if resp.FileURL != "bolt://documents/"+blobs.names[0] {
		t.Errorf("FileURL = %q", resp.FileURL)
	}
	if resp.Document != "report.PDF" || resp.ChunksStored != 3 {
		t.Errorf("Upload() = %+v", resp)
	}
	if len(ingester.files) != 1 || ingester.files[0] != "report.PDF" {
		t.Errorf("ingested files = %v, want [report.PDF]", ingester.files)
	}
}

func TestDocumentService_Upload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      service.UploadRequest
		blobs    *fakeBlobs
		ingester *fakeIngester
		check    func(error) bool
	}{
		{
			name:     "unsupported type",
			req:      service.UploadRequest{FileName: "photo.png", Data: []byte("x")},
			blobs:    &fakeBlobs{},
			ingester: &fakeIngester{},
			check: func(err error) bool {
				var v *service.ValidationError
				return errors.As(err, &v) && v.Message == service.AllowedTypesMessage
			},
		},
		{
			name:     "missing file name",
			req:      service.UploadRequest{FileName: "", Data: []byte("x")},
			blobs:    &fakeBlobs{},
			ingester: &fakeIngester{},
			check:    func(err error) bool { return errors.Is(err, service.ErrInvalidInput) },
		},
		{
			name:     "empty file",
			req:      service.UploadRequest{FileName: "a.pdf"},
			blobs:    &fakeBlobs{},
			ingester: &fakeIngester{},
			check:    func(err error) bool { return errors.Is(err, service.ErrInvalidInput) },
		},
		{
			name:     "blob store failure",
			req:      service.UploadRequest{FileName: "a.pdf", Data: []byte("x")},
			blobs:    &fakeBlobs{err: errors.New("403 forbidden")},
			ingester: &fakeIngester{},
			check:    func(err error) bool { return errors.Is(err, service.ErrExternalService) },
		},
		{
			name:     "no text extracted",
			req:      service.UploadRequest{FileName: "scan.pdf", Data: []byte("x")},
			blobs:    &fakeBlobs{},
			ingester: &fakeIngester{err: fmt.Errorf("%w: no text", rag.ErrExtraction)},
			check:    func(err error) bool { return errors.Is(err, service.ErrUnprocessable) },
		},
		{
			name:     "every chunk failed to embed",
			req:      service.UploadRequest{FileName: "a.docx", Data: []byte("x")},
			blobs:    &fakeBlobs{},
			ingester: &fakeIngester{err: fmt.Errorf("%w: all failed", rag.ErrEmbedding)},
			check:    func(err error) bool { return errors.Is(err, service.ErrExternalService) },
		},
		{
			name:     "vector store failure",
			req:      service.UploadRequest{FileName: "a.md", Data: []byte("x")},
			blobs:    &fakeBlobs{},
			ingester: &fakeIngester{err: fmt.Errorf("%w: refused", rag.ErrStorage)},
			check: func(err error) bool {
				return errors.Is(err, rag.ErrStorage) && !errors.Is(err, service.ErrExternalService)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewDocumentService(tt.blobs, tt.ingester)
			_, err := svc.Upload(testContext(), tt.req)
			if err == nil {
				t.Fatal("Upload() expected error, got nil")
			}
			if !tt.check(err) {
				t.Errorf("Upload() error type mismatch: %v", err)
			}
		})
	}
}

func TestDocumentService_Upload_RejectsBeforeStoring(t *testing.T) {
	blobs := &fakeBlobs{}
	ingester := &fakeIngester{}
	svc := service.NewDocumentService(blobs, ingester)

	_, _ = svc.Upload(testContext(), service.UploadRequest{FileName: "malware.exe", Data: []byte("MZ")})
	if len(blobs.names) != 0 || len(ingester.files) != 0 {
		t.Errorf("rejected upload reached storage: blobs=%v ingested=%v", blobs.names, ingester.files)
	}
}
