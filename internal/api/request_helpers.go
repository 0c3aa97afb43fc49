package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Beyllin/link/internal/api/shared"
)

// decodeAndValidate reads a JSON body into req and validates it, writing a
// 400 response and returning false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return false
	}
	return true
}

// requestOwner picks the explicit owner or falls back to the token subject.
func requestOwner(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	owner, _ := shared.GetOwner(r.Context())
	return owner
}

// getPathID extracts a non-empty path parameter.
func getPathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if id == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, name+" is required")
		return "", false
	}
	return id, true
}

// respondWithMappedError writes err using the status and safe message mapping.
func respondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
