package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
	apperrors "github.com/oasislearninghub/oasis/internal/errors"
	"github.com/oasislearninghub/oasis/internal/output"
)

// EnrollmentReader is the read side of the enrollment store.
type EnrollmentReader interface {
	LookupEnrollment(ctx context.Context, id string) (*core.Enrollment, error)
	ListEnrollments(ctx context.Context) ([]core.Enrollment, error)
}

// EnrollmentHandler serves enrollment records and receipts.
type EnrollmentHandler struct {
	Store EnrollmentReader
}

// List writes every enrollment in the requested format (default json).
func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	format, ok := requestFormat(w, r, output.FormatJSON)
	if !ok {
		return
	}

	enrollments, err := h.Store.ListEnrollments(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list enrollments"))
		return
	}

	body, err := output.NewFormatter(format).FormatEnrollments(enrollments)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render enrollments"))
		return
	}
	writeBody(w, format, body)
}

// Get writes one enrollment as JSON.
func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	enrollment, ok := h.find(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

// Receipt renders the printable confirmation for one enrollment
// (default html).
func (h *EnrollmentHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	format, ok := requestFormat(w, r, output.FormatHTML)
	if !ok {
		return
	}
	enrollment, ok := h.find(w, r)
	if !ok {
		return
	}

	body, err := output.NewFormatter(format).FormatReceipt(enrollment)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render receipt"))
		return
	}
	writeBody(w, format, body)
}

func (h *EnrollmentHandler) find(w http.ResponseWriter, r *http.Request) (*core.Enrollment, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("enrollment id is required"))
		return nil, false
	}

	enrollment, err := h.Store.LookupEnrollment(r.Context(), id)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to look up enrollment"))
		return nil, false
	}
	if enrollment == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("Enrollment not found"))
		return nil, false
	}
	return enrollment, true
}

// PolicyHandler lists the active rate limit policies.
type PolicyHandler struct {
	Policies ratelimit.Policies
}

// List writes the policies in the requested format (default json).
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	format, ok := requestFormat(w, r, output.FormatJSON)
	if !ok {
		return
	}

	body, err := output.NewFormatter(format).FormatPolicies(h.Policies.Sorted())
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render policies"))
		return
	}
	writeBody(w, format, body)
}

func requestFormat(w http.ResponseWriter, r *http.Request, fallback output.Format) (output.Format, bool) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return fallback, true
	}
	format, err := output.ParseFormat(raw)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "unsupported format"))
		return "", false
	}
	return format, true
}

func writeBody(w http.ResponseWriter, format output.Format, body string) {
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
	if !strings.HasSuffix(body, "\n") {
		_, _ = w.Write([]byte("\n"))
	}
}
