// Package role maps a free-text job description to a coarse role used to
// narrow retrieval.
package role

import "strings"

// TableVersion identifies the revision of DefaultTable. Bump it whenever an
// entry, keyword or the entry order changes.
const TableVersion = "2026-10.1"

// Entry maps a role to the keyword phrases that select it.
type Entry struct {
	Role     string
	Keywords []string // lowercase
}

// DefaultTable is evaluated top to bottom and the first matching entry wins.
// Order is part of the contract: a description mentioning both "developer"
// and "data scientist" is a Software Engineer because that entry comes first.
var DefaultTable = []Entry{
	{Role: "Software Engineer", Keywords: []string{
		"software engineer", "software developer", "developer", "backend", "back-end",
		"frontend", "front-end", "full stack", "full-stack", "programmer",
	}},
	{Role: "Data Scientist", Keywords: []string{
		"data scientist", "data science", "machine learning", "data analyst", "ml engineer",
	}},
	{Role: "DevOps Engineer", Keywords: []string{
		"devops", "site reliability", "platform engineer", "cloud engineer", "infrastructure engineer",
	}},
	{Role: "Product Manager", Keywords: []string{
		"product manager", "product owner", "product management",
	}},
	{Role: "Designer", Keywords: []string{
		"ux designer", "ui designer", "product designer", "graphic designer", "user experience",
	}},
	{Role: "Marketing", Keywords: []string{
		"marketing", "seo specialist", "content strategist",
	}},
	{Role: "Sales", Keywords: []string{
		"sales", "account executive", "business development",
	}},
}

// Classifier matches descriptions against an ordered table.
type Classifier struct {
	table []Entry
}

// NewClassifier returns a classifier over table, or DefaultTable when table is nil.
func NewClassifier(table []Entry) *Classifier {
	if table == nil {
		table = DefaultTable
	}
	return &Classifier{table: table}
}

// Classify returns the first role whose keywords occur in jobDescription,
// case-insensitively. ok is false when nothing matches.
func (c *Classifier) Classify(jobDescription string) (role string, ok bool) {
	text := strings.ToLower(jobDescription)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, entry := range c.table {
		for _, kw := range entry.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return entry.Role, true
			}
		}
	}
	return "", false
}

// Classify uses DefaultTable.
func Classify(jobDescription string) (string, bool) {
	return defaultClassifier.Classify(jobDescription)
}

var defaultClassifier = NewClassifier(nil)
