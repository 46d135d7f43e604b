// Package mcp exposes resume analysis and knowledge-base search as MCP tools.
package mcp

// AnalyzeResumeInput defines the input parameters for the analyze_resume tool.
type AnalyzeResumeInput struct {
	ResumeText     string `json:"resume_text" jsonschema:"the plain-text resume to analyze"`
	JobDescription string `json:"job_description,omitempty" jsonschema:"the job description to score the resume against"`
}

// AnalyzeResumeOutput mirrors the REST analysis response.
type AnalyzeResumeOutput struct {
	MatchScore      int      `json:"match_score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	MissingKeywords []string `json:"missing_keywords"`
	Verdict         string   `json:"verdict"`
	RAGEnabled      bool     `json:"rag_enabled"`
	ContextSources  int      `json:"context_sources"`
	JobRole         string   `json:"job_role"`
	// Timestamp is RFC 3339 UTC.
	Timestamp string `json:"timestamp"`
}

// SearchKnowledgeInput defines the input parameters for the search_knowledge tool.
type SearchKnowledgeInput struct {
	Query    string   `json:"query" jsonschema:"the semantic search query"`
	Category string   `json:"category,omitempty" jsonschema:"restrict results to one knowledge-base category, e.g. resume_best_practices"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (default 5, max 20)"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"minimum relevance score between 0 and 1 (default 0.65)"`
}

// SearchKnowledgeOutput contains the search results.
type SearchKnowledgeOutput struct {
	Results []SearchResult `json:"results"`
	// Message is set when nothing matched.
	Message string `json:"message,omitempty"`
}

// SearchResult is one retrieved passage.
type SearchResult struct {
	ChunkID  string  `json:"chunk_id"`
	Category string  `json:"category"`
	Filename string  `json:"filename"`
	Section  string  `json:"section,omitempty"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// IndexStatusInput takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput reports knowledge-base population.
type IndexStatusOutput struct {
	Collection     string            `json:"collection"`
	TotalVectors   uint64            `json:"total_vectors"`
	Dimension      int               `json:"dimension"`
	FullnessRatio  float64           `json:"fullness_ratio"`
	CategoryCounts map[string]uint64 `json:"category_counts"`
	LastIngestion  string            `json:"last_ingestion,omitempty"`
	SourceRevision string            `json:"source_revision,omitempty"`
	Warning        string            `json:"warning,omitempty"`
}
