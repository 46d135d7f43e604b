package api

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>CareerConnect Resume Analysis</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 640px; margin: 3rem auto; padding: 0 1rem; color: #1f2937; }
  code { background: #f3f4f6; padding: 0.1rem 0.3rem; border-radius: 4px; }
  li { margin-bottom: 0.5rem; }
</style>
</head>
<body>
<h1>CareerConnect Resume Analysis</h1>
<p>Retrieval-augmented resume scoring backed by a career-advice knowledge base.</p>
<ul>
  <li><code>POST /api/ai/analyze</code> with <code>{"resumeText": "...", "jobDescription": "..."}</code></li>
  <li><code>GET <a href="/health">/health</a></code> vector index connectivity</li>
  <li><code>/mcp</code> Model Context Protocol over Streamable HTTP</li>
</ul>
</body>
</html>`

// NewLandingHandler serves the index page at / and 404s everything else.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
