package corpus

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gogithub "github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/careerconnect-rag/internal/github"
)

func TestGitHubSource_Load(t *testing.T) {
	files := map[string]string{
		"resume_best_practices.md": "# Resume\nQuantify results.",
		"career_advice.txt":        "Prepare STAR stories.",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/careers/contents/kb", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"type":"file","name":"resume_best_practices.md"},
			{"type":"file","name":"logo.png"},
			{"type":"file","name":"career_advice.txt"}
		]`)
	})
	for name, content := range files {
		mux.HandleFunc("/api/v3/repos/acme/careers/contents/kb/"+name, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"type":"file","name":%q,"encoding":"base64","content":%q}`,
				name, base64.StdEncoding.EncodeToString([]byte(content)))
		})
	}
	mux.HandleFunc("/api/v3/repos/acme/careers/commits", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"sha":"c0ffee"}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	gh, err := gogithub.NewClient(nil).WithEnterpriseURLs(srv.URL+"/api/v3/", srv.URL+"/api/uploads/")
	require.NoError(t, err)
	fetcher := github.NewFetcher(&github.Client{Client: gh}, "acme", "careers", "kb", "")

	src, err := NewGitHubSource(fetcher, nil)
	require.NoError(t, err)

	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "career_advice.txt", docs[0].Filename)
	assert.Equal(t, "career_advice", docs[0].Category)
	assert.Equal(t, "Prepare STAR stories.", docs[0].Content)
	assert.Equal(t, "resume_best_practices.md", docs[1].Filename)
	assert.Equal(t, int64(len(files["resume_best_practices.md"])), docs[1].SizeBytes)

	rev, err := src.Revision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", rev)
}
