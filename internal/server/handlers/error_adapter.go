package handlers

import (
	"net/http"

	apperrors "github.com/oasislearninghub/oasis/internal/errors"
)

// ErrorResponder writes err as an error envelope response.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

var respondWithError ErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder routes handler errors through responder. nil
// restores the plain envelope writer.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	respondWithError = responder
}
