// Package api serves resume analysis over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/bull/careerconnect-rag/internal/analysis"
	"github.com/bull/careerconnect-rag/internal/resumefile"
)

const (
	// MaxBodyBytes caps the JSON request body and the uploaded resume file.
	MaxBodyBytes = 5 << 20
	// formOverhead leaves room for the text fields of a multipart upload.
	formOverhead = 1 << 20
)

// ResumeFileField is the multipart field carrying a PDF resume.
const ResumeFileField = "resumeFile"

// Analyzer runs resume analyses.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText, jobDescription string) (*analysis.Report, error)
}

// AnalyzeRequest is the body of POST /api/ai/analyze.
type AnalyzeRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

// PDFExtractor extracts the text layer of a PDF resume.
type PDFExtractor interface {
	ExtractPDF(ctx context.Context, data []byte) (string, error)
}

// NewAnalyzeHandler creates the handler for POST /api/ai/analyze. The body is
// either JSON or multipart/form-data with resumeText, jobDescription and an
// optional PDF in resumeFile, whose text replaces resumeText. A nil extractor
// rejects file uploads.
func NewAnalyzeHandler(analyzer Analyzer, extractor PDFExtractor, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			req AnalyzeRequest
			err error
		)
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes+formOverhead)
			req, err = readForm(r, extractor)
		} else {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
			if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
				err = fmt.Errorf("%w: %w", errInvalidRequest, decodeErr)
			}
		}
		if err != nil {
			writeError(w, logger, err)
			return
		}

		report, err := analyzer.Analyze(r.Context(), req.ResumeText, req.JobDescription)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, report)
	}
}

func readForm(r *http.Request, extractor PDFExtractor) (AnalyzeRequest, error) {
	if err := r.ParseMultipartForm(MaxBodyBytes + formOverhead); err != nil {
		return AnalyzeRequest{}, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}
	defer r.MultipartForm.RemoveAll()

	req := AnalyzeRequest{
		ResumeText:     r.FormValue("resumeText"),
		JobDescription: r.FormValue("jobDescription"),
	}

	file, header, err := r.FormFile(ResumeFileField)
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return AnalyzeRequest{}, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}
	defer file.Close()

	if extractor == nil || header.Header.Get("Content-Type") != resumefile.ContentTypePDF {
		return AnalyzeRequest{}, resumefile.ErrUnsupportedType
	}
	if header.Size > MaxBodyBytes {
		return AnalyzeRequest{}, fmt.Errorf("%w: resume file exceeds %d bytes", errInvalidRequest, MaxBodyBytes)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return AnalyzeRequest{}, fmt.Errorf("%w: read resume file: %w", errInvalidRequest, err)
	}
	text, err := extractor.ExtractPDF(r.Context(), data)
	if err != nil {
		return AnalyzeRequest{}, err
	}
	req.ResumeText = text
	return req, nil
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, body := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Analyze request failed", "kind", body.Kind, "error", err)
	} else {
		logger.Warn("Analyze request rejected", "kind", body.Kind, "error", err)
	}
	writeJSON(w, logger, status, ErrorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "status", status, "error", err)
	}
}
