package indexer

// Stage names a phase of an ingestion run.
type Stage string

const (
	StageEmbedding Stage = "embedding"
	StageUpserting Stage = "upserting"
)

// Progress reports how far a stage has advanced.
type Progress struct {
	Stage Stage
	Done  int
	Total int
}
