package storage

import (
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace scopes the name-based UUIDs derived from chunk ids.
var pointNamespace = uuid.MustParse("6f1c2f4e-8a51-4c1b-9a43-2d7f0b5e9c11")

// PointID maps a chunk id to its Qdrant point id. The mapping is deterministic,
// so re-ingesting the same chunk id overwrites the same point.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func toPayload(record VectorRecord) map[string]*qdrant.Value {
	m := record.Metadata
	chunkID := m.ChunkID
	if chunkID == "" {
		chunkID = record.ID
	}
	return qdrant.NewValueMap(map[string]any{
		"chunk_id":     chunkID,
		"filename":     m.Filename,
		"category":     m.Category,
		"chunk_index":  m.ChunkIndex,
		"total_chunks": m.TotalChunks,
		"text":         m.Text,
		"section":      m.Section,
	})
}

func fromPayload(payload map[string]*qdrant.Value) *ChunkMetadata {
	return &ChunkMetadata{
		ChunkID:     payload["chunk_id"].GetStringValue(),
		Filename:    payload["filename"].GetStringValue(),
		Category:    payload["category"].GetStringValue(),
		ChunkIndex:  int(payload["chunk_index"].GetIntegerValue()),
		TotalChunks: int(payload["total_chunks"].GetIntegerValue()),
		Text:        payload["text"].GetStringValue(),
		Section:     payload["section"].GetStringValue(),
	}
}

// toMatch converts a scored point. The chunk id is preferred over the point UUID.
func toMatch(point *qdrant.ScoredPoint, includeMetadata bool) Match {
	match := Match{
		ID:    point.GetId().GetUuid(),
		Score: float64(point.GetScore()),
	}
	if len(point.GetPayload()) > 0 {
		meta := fromPayload(point.GetPayload())
		if meta.ChunkID != "" {
			match.ID = meta.ChunkID
		}
		if includeMetadata {
			match.Metadata = meta
		}
	}
	return match
}

func buildFilter(f *Filter) *qdrant.Filter {
	if f == nil || f.Category == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("category", f.Category),
		},
	}
}
