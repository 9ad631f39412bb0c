package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/pagepilot/pagepilot/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encoding response: %v", err)
	}
}

// writeError maps a classified error onto its HTTP status. Partial step
// failures never reach here; only request-level failures do.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), errorResponse{
		Error: err.Error(),
		Code:  string(apperr.CodeOf(err)),
	})
}

func writeBadRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeError(w, apperr.New(apperr.CodeValidation, format, args...))
}
