package analysis

import (
	"strings"

	"github.com/bull/careerconnect-rag/internal/retrieval"
)

const systemPrompt = "You are an expert Resume Analyzer. You compare a candidate's resume with a job description and score the fit."

const outputInstructions = `Return ONLY valid JSON, with no surrounding text, using exactly this structure:
{
  "match_score": number between 0 and 100,
  "strengths": [string],
  "weaknesses": [string],
  "missing_keywords": [string],
  "verdict": "string"
}`

// buildPrompt assembles the user prompt. Context sections are included only
// when non-empty; resume and job description are inserted verbatim.
func buildPrompt(resumeText, jobDescription, jobRole string, rc *retrieval.Context) string {
	var b strings.Builder
	b.WriteString("Analyze the resume against the job description. Use the reference material, when present, to ground your assessment.\n\n")

	if rc != nil {
		section(&b, "Resume Best Practices", rc.General)
		roleHeading := "Role-Specific Skills"
		if jobRole != "" {
			roleHeading += " (" + jobRole + ")"
		}
		section(&b, roleHeading, rc.RoleSpecific)
		section(&b, "Interview and Career Advice", rc.Career)
	}

	section(&b, "Resume", resumeText)
	b.WriteString("## Job Description\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\n")

	b.WriteString(outputInstructions)
	return b.String()
}

func section(b *strings.Builder, heading, body string) {
	if body == "" {
		return
	}
	b.WriteString("## ")
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
}

// truncate returns at most maxChars characters of s.
func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
