package role

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		jd     string
		want   string
		wantOK bool
	}{
		{"backend", "Backend Engineer, Go and Postgres", "Software Engineer", true},
		{"case insensitive", "SENIOR SOFTWARE ENGINEER", "Software Engineer", true},
		{"data", "We are hiring a Data Scientist", "Data Scientist", true},
		{"ml", "Machine Learning researcher", "Data Scientist", true},
		{"devops", "DevOps engineer for Kubernetes clusters", "DevOps Engineer", true},
		{"product", "Product Manager, payments", "Product Manager", true},
		{"designer", "UX Designer for mobile apps", "Designer", true},
		{"marketing", "Growth marketing lead", "Marketing", true},
		{"sales", "Enterprise Account Executive", "Sales", true},
		{"none", "Head chef at a busy restaurant", "", false},
		{"empty", "", "", false},
		{"blank", "   \n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.jd)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The table order decides overlapping descriptions: Software Engineer is
// declared before Data Scientist.
func TestClassify_TableOrderWins(t *testing.T) {
	assert.Equal(t, "Software Engineer", DefaultTable[0].Role)
	assert.Equal(t, "Data Scientist", DefaultTable[1].Role)

	got, ok := Classify("Senior Software Engineer with data science experience")
	assert.True(t, ok)
	assert.Equal(t, "Software Engineer", got)

	got, _ = Classify("Data scientist who is also a strong developer")
	assert.Equal(t, "Software Engineer", got)
}

func TestClassifier_CustomTable(t *testing.T) {
	c := NewClassifier([]Entry{
		{Role: "Data", Keywords: []string{"data"}},
		{Role: "Software", Keywords: []string{"software"}},
	})

	got, ok := c.Classify("Senior Software Engineer with data science experience")
	assert.True(t, ok)
	assert.Equal(t, "Data", got)
}

func TestClassifier_Deterministic(t *testing.T) {
	jd := "Full-stack developer with machine learning and DevOps exposure"
	first, _ := Classify(jd)
	for i := 0; i < 50; i++ {
		got, _ := Classify(jd)
		assert.Equal(t, first, got)
	}
}

func TestDefaultTable_KeywordsLowercase(t *testing.T) {
	for _, e := range DefaultTable {
		for _, kw := range e.Keywords {
			assert.Equal(t, kw, strings.ToLower(kw), "%s keyword %q", e.Role, kw)
		}
	}
}
