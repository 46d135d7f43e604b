package storage

// RecommendedBatchSize bounds the request payload of a single Upsert.
// Upsert itself imposes no limit; callers batch.
const RecommendedBatchSize = 100

// DefaultCollection is the single Qdrant collection holding the knowledge base.
const DefaultCollection = "careerconnect"

// ChunkMetadata is stored as the point payload next to every vector.
type ChunkMetadata struct {
	ChunkID     string // "chunk_17"; the Qdrant point id is derived from it
	Filename    string // "resume_best_practices.md"
	Category    string // filename without extension
	ChunkIndex  int    // position within the document
	TotalChunks int    // chunks produced from the document
	Text        string // chunk text, returned to build LLM context
	Section     string // markdown header path the chunk starts in, may be empty
}

// VectorRecord is one embedded chunk.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata ChunkMetadata
}

// Filter restricts a query by payload. Empty fields do not filter.
type Filter struct {
	Category string
}

// QueryRequest is a similarity query.
type QueryRequest struct {
	Vector          []float32
	TopK            int
	Filter          *Filter
	IncludeMetadata bool
}

// Match is a scored query result. Metadata is nil unless requested.
type Match struct {
	ID       string
	Score    float64
	Metadata *ChunkMetadata
}

// IndexStats summarizes the collection.
type IndexStats struct {
	TotalVectors   uint64
	Dimension      int
	FullnessRatio  float64           // TotalVectors / capacity, 0 when no capacity is configured
	CategoryCounts map[string]uint64 // vectors per category
}
