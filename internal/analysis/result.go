package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Result is the validated analysis returned to callers.
type Result struct {
	MatchScore      int      `json:"match_score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	MissingKeywords []string `json:"missing_keywords"`
	Verdict         string   `json:"verdict"`
}

// Metadata describes how a Result was produced.
type Metadata struct {
	RAGEnabled     bool      `json:"ragEnabled"`
	ContextSources int       `json:"contextSources"`
	JobRole        string    `json:"jobRole"`
	Timestamp      time.Time `json:"timestamp"`
}

// Report is the response to an analysis request.
type Report struct {
	Analysis Result   `json:"analysis"`
	Metadata Metadata `json:"metadata"`
}

var listFields = []string{"strengths", "weaknesses", "missing_keywords"}

// ParseResult strips Markdown code fences from raw model output and validates it:
// every field must be present, lists must hold strings, verdict must be non-empty
// and match_score must be a number in [0, 100]. Fractional scores are rounded.
func ParseResult(raw string) (*Result, error) {
	malformed := func(format string, args ...any) error {
		return &MalformedOutputError{Raw: raw, Reason: fmt.Sprintf(format, args...)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFences(raw)), &fields); err != nil {
		return nil, malformed("not a JSON object: %v", err)
	}

	present := func(name string) bool {
		v, ok := fields[name]
		return ok && string(v) != "null"
	}

	result := &Result{}

	if !present("match_score") {
		return nil, malformed("missing field match_score")
	}
	var score float64
	if err := json.Unmarshal(fields["match_score"], &score); err != nil {
		return nil, malformed("match_score is not a number")
	}
	if math.IsNaN(score) || score < 0 || score > 100 {
		return nil, malformed("match_score %v outside [0, 100]", score)
	}
	result.MatchScore = int(math.Round(score))

	lists := map[string]*[]string{
		"strengths":        &result.Strengths,
		"weaknesses":       &result.Weaknesses,
		"missing_keywords": &result.MissingKeywords,
	}
	for _, name := range listFields {
		if !present(name) {
			return nil, malformed("missing field %s", name)
		}
		if err := json.Unmarshal(fields[name], lists[name]); err != nil {
			return nil, malformed("%s is not a list of strings", name)
		}
	}

	if !present("verdict") {
		return nil, malformed("missing field verdict")
	}
	if err := json.Unmarshal(fields["verdict"], &result.Verdict); err != nil {
		return nil, malformed("verdict is not a string")
	}
	if strings.TrimSpace(result.Verdict) == "" {
		return nil, malformed("verdict is empty")
	}

	return result, nil
}

// stripFences removes every Markdown code-fence marker.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
