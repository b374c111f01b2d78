package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"docrag/internal/contextutil"
)

const (
	payloadFileName   = "file_name"
	payloadChunkIndex = "chunk_index"
	payloadText       = "text"

	scrollPageSize = 256
)

// QdrantStore implements VectorStore using a single Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
	}, nil
}

// grpcAddress derives the gRPC host and port from the Qdrant HTTP URL.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// Upsert inserts or updates records in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: recordPayload(rec),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(records), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(records))
	return nil
}

// ScanAll pages through the whole collection with the scroll API.
func (s *QdrantStore) ScanAll(ctx context.Context) ([]Record, error) {
	logger := contextutil.LoggerFromContext(ctx)

	limit := uint32(scrollPageSize)
	var (
		offset  *qdrant.PointId
		records []Record
	)
	for {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to scroll points", "collection", s.collection, "error", err)
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}

		for _, point := range resp.GetResult() {
			records = append(records, pointToRecord(point))
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	logger.DebugContext(ctx, "scanned collection", "collection", s.collection, "records", len(records))
	return records, nil
}

// Ping checks that the collection is reachable.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.CollectionExists(ctx); err != nil {
		return err
	}
	return nil
}

// CollectionExists checks if the store's collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// EnsureCollection ensures the collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
func (s *QdrantStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil || params.Size == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func recordPayload(rec Record) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		payloadFileName:   qdrant.NewValueString(rec.FileName),
		payloadChunkIndex: qdrant.NewValueInt(int64(rec.ChunkIndex)),
		payloadText:       qdrant.NewValueString(rec.Text),
	}
}

func pointToRecord(point *qdrant.RetrievedPoint) Record {
	rec := Record{
		ID:     pointIDString(point.GetId()),
		Vector: point.GetVectors().GetVector().GetData(),
	}

	payload := point.GetPayload()
	if v, ok := payload[payloadFileName]; ok {
		rec.FileName = v.GetStringValue()
	}
	if v, ok := payload[payloadChunkIndex]; ok {
		rec.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload[payloadText]; ok {
		rec.Text = v.GetStringValue()
	}
	return rec
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
