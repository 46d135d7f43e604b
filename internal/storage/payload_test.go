package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() VectorRecord {
	return VectorRecord{
		ID:     "chunk_7",
		Values: []float32{0.1, 0.2},
		Metadata: ChunkMetadata{
			ChunkID:     "chunk_7",
			Filename:    "resume_best_practices.md",
			Category:    "resume_best_practices",
			ChunkIndex:  2,
			TotalChunks: 5,
			Text:        "Quantify achievements.",
			Section:     "# Resumes > ## Impact",
		},
	}
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("chunk_0")
	b := PointID("chunk_0")
	c := PointID("chunk_1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestPayloadRoundTrip(t *testing.T) {
	record := sampleRecord()

	meta := fromPayload(toPayload(record))
	assert.Equal(t, record.Metadata, *meta)
}

func TestToPayload_DefaultsChunkIDToRecordID(t *testing.T) {
	record := sampleRecord()
	record.Metadata.ChunkID = ""

	payload := toPayload(record)
	assert.Equal(t, "chunk_7", payload["chunk_id"].GetStringValue())
}

func TestToMatch(t *testing.T) {
	record := sampleRecord()
	point := &qdrant.ScoredPoint{
		Id:      qdrant.NewIDUUID(PointID(record.ID)),
		Score:   0.8125,
		Payload: toPayload(record),
	}

	withMeta := toMatch(point, true)
	assert.Equal(t, "chunk_7", withMeta.ID)
	assert.InDelta(t, 0.8125, withMeta.Score, 1e-6)
	require.NotNil(t, withMeta.Metadata)
	assert.Equal(t, "resume_best_practices", withMeta.Metadata.Category)

	withoutMeta := toMatch(point, false)
	assert.Equal(t, "chunk_7", withoutMeta.ID)
	assert.Nil(t, withoutMeta.Metadata)
}

func TestToMatch_NoPayloadFallsBackToPointID(t *testing.T) {
	id := PointID("chunk_3")
	point := &qdrant.ScoredPoint{Id: qdrant.NewIDUUID(id), Score: 0.5}

	match := toMatch(point, false)
	assert.Equal(t, id, match.ID)
}

func TestBuildFilter(t *testing.T) {
	assert.Nil(t, buildFilter(nil))
	assert.Nil(t, buildFilter(&Filter{}))

	f := buildFilter(&Filter{Category: "interview_career_advice"})
	require.NotNil(t, f)
	require.Len(t, f.Must, 1)
	assert.Equal(t, "category", f.Must[0].GetField().GetKey())
	assert.Equal(t, "interview_career_advice", f.Must[0].GetField().GetMatch().GetKeyword())
}
