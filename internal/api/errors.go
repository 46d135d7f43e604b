package api

import (
	"errors"
	"net/http"

	"github.com/bull/careerconnect-rag/internal/analysis"
	"github.com/bull/careerconnect-rag/internal/chunker"
	"github.com/bull/careerconnect-rag/internal/embedding"
	"github.com/bull/careerconnect-rag/internal/resumefile"
	"github.com/bull/careerconnect-rag/internal/storage"
)

// ErrorKind is the machine-readable error category returned to callers.
type ErrorKind string

const (
	KindInvalidArgument   ErrorKind = "InvalidArgument"
	KindMissingInput      ErrorKind = "MissingInput"
	KindEmbeddingFailure  ErrorKind = "EmbeddingFailure"
	KindIndexUnavailable  ErrorKind = "IndexUnavailable"
	KindGenerationFailure ErrorKind = "GenerationFailure"
	KindMalformedOutput   ErrorKind = "MalformedAnalysisOutput"
	KindInternal          ErrorKind = "Internal"
)

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Raw     string    `json:"raw,omitempty"` // unparsed model output for MalformedAnalysisOutput
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// errInvalidRequest marks undecodable request bodies.
var errInvalidRequest = errors.New("invalid request body")

// Classify maps an error to its kind, HTTP status and response body.
func Classify(err error) (int, ErrorBody) {
	body := ErrorBody{Message: err.Error()}

	var malformed *analysis.MalformedOutputError
	switch {
	case errors.Is(err, errInvalidRequest), errors.Is(err, chunker.ErrInvalidArgument),
		errors.Is(err, resumefile.ErrUnsupportedType), errors.Is(err, resumefile.ErrUnreadable):
		body.Kind = KindInvalidArgument
		return http.StatusBadRequest, body
	case errors.Is(err, analysis.ErrMissingInput):
		body.Kind = KindMissingInput
		return http.StatusBadRequest, body
	case errors.As(err, &malformed):
		body.Kind = KindMalformedOutput
		body.Raw = malformed.Raw
		return http.StatusBadGateway, body
	case errors.Is(err, analysis.ErrGenerationFailure):
		body.Kind = KindGenerationFailure
		return http.StatusBadGateway, body
	case errors.Is(err, embedding.ErrEmbeddingFailure):
		body.Kind = KindEmbeddingFailure
		return http.StatusBadGateway, body
	case storage.IsUnavailable(err):
		body.Kind = KindIndexUnavailable
		return http.StatusServiceUnavailable, body
	default:
		body.Kind = KindInternal
		body.Message = "internal server error"
		return http.StatusInternalServerError, body
	}
}
