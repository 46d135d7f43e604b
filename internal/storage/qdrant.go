// Package storage is the vector index client backed by Qdrant.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// vectorName is the named vector holding chunk embeddings.
const vectorName = "content"

// DefaultTimeout bounds every call to Qdrant.
const DefaultTimeout = 15 * time.Second

// Options configures the Qdrant connection and collection.
type Options struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
	Capacity   uint64
	Timeout    time.Duration
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	dimension  int
	capacity   uint64
	timeout    time.Duration
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(opts Options) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create qdrant client: %w", ErrIndexUnavailable, err)
	}

	s := &QdrantStorage{
		client:     client,
		collection: opts.Collection,
		dimension:  opts.Dimension,
		capacity:   opts.Capacity,
		timeout:    opts.Timeout,
	}
	if s.collection == "" {
		s.collection = DefaultCollection
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

// Collection returns the collection name.
func (s *QdrantStorage) Collection() string { return s.collection }

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return s.Health(ctx) }, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("%w: health check failed: %w", ErrIndexUnavailable, err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("%w: health check returned invalid response", ErrIndexUnavailable)
	}
	return nil
}

// CollectionExists reports whether the collection has been created.
func (s *QdrantStorage) CollectionExists(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: list collections: %w", ErrIndexUnavailable, err)
	}
	for _, name := range collections {
		if name == s.collection {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCollection creates the collection (cosine distance, configured dimension)
// and its payload indexes if missing. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if s.dimension <= 0 {
		return fmt.Errorf("%w: cannot create collection %s without a vector dimension", ErrIndexUnavailable, s.collection)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection: %w", ErrIndexUnavailable, err)
	}

	return s.createPayloadIndexes(ctx)
}

// createPayloadIndexes creates keyword indexes for the filterable fields.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	for _, field := range []string{"category", "filename", "chunk_id"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("%w: create index for field %s: %w", ErrIndexUnavailable, field, err)
		}
	}
	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	deleteCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.client.DeleteCollection(deleteCtx, s.collection)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: delete collection: %w", ErrIndexUnavailable, err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Upsert writes records in a single request. See RecommendedBatchSize.
func (s *QdrantStorage) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, record := range records {
		if s.dimension > 0 && len(record.Values) != s.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				ErrDimensionMismatch, record.ID, len(record.Values), s.dimension)
		}
		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(PointID(record.ID)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorName: qdrant.NewVector(record.Values...),
			}),
			Payload: toPayload(record),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %d records: %w", ErrIndexUnavailable, len(records), err)
	}
	return nil
}

// Query returns at most TopK matches ordered by descending score, as ranked by Qdrant.
func (s *QdrantStorage) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	if req.TopK <= 0 {
		return nil, fmt.Errorf("query topK must be positive, got %d", req.TopK)
	}
	if s.dimension > 0 && len(req.Vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(req.Vector), s.dimension)
	}

	// Without metadata only the chunk id is fetched, so matches still carry it.
	withPayload := qdrant.NewWithPayloadInclude("chunk_id")
	if req.IncludeMetadata {
		withPayload = qdrant.NewWithPayload(true)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Using:          &using,
		Filter:         buildFilter(req.Filter),
		Limit:          qdrant.PtrOf(uint64(req.TopK)),
		WithPayload:    withPayload,
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrIndexUnavailable, err)
	}

	matches := make([]Match, 0, len(results))
	for _, point := range results {
		matches = append(matches, toMatch(point, req.IncludeMetadata))
	}
	return matches, nil
}

// Delete removes the records with the given chunk ids.
func (s *QdrantStorage) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = qdrant.NewIDUUID(PointID(id))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: delete %d records: %w", ErrIndexUnavailable, len(chunkIDs), err)
	}
	return nil
}

// Stats reports collection size, dimension, fullness and per-category counts
// for the given categories.
func (s *QdrantStorage) Stats(ctx context.Context, categories []string) (*IndexStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: get collection info: %w", ErrIndexUnavailable, err)
	}

	stats := &IndexStats{
		TotalVectors:   info.GetPointsCount(),
		Dimension:      s.dimension,
		CategoryCounts: make(map[string]uint64, len(categories)),
	}
	if params, ok := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[vectorName]; ok {
		stats.Dimension = int(params.GetSize())
	}
	if s.capacity > 0 {
		stats.FullnessRatio = float64(stats.TotalVectors) / float64(s.capacity)
	}

	for _, category := range categories {
		count, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.collection,
			Filter:         buildFilter(&Filter{Category: category}),
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: count category %s: %w", ErrIndexUnavailable, category, err)
		}
		stats.CategoryCounts[category] = count
	}

	return stats, nil
}

// IsUnavailable reports whether err came from the index rather than from the caller.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrIndexUnavailable)
}
