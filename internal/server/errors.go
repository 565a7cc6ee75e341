package server

import (
	"net/http"

	apperrors "github.com/oasislearninghub/oasis/internal/errors"
)

// HandleError writes err as a JSON error envelope with its mapped status.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
