package response

import (
	"encoding/json"
	"net/http"

	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Details *domain.ValidationError `json:"details,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends an error response. The message is shown to clients as is, so it
// must never carry internal failure detail.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ValidationFailed sends a 400 with field-level details
func ValidationFailed(w http.ResponseWriter, verr *domain.ValidationError) {
	JSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Validation failed",
		Details: verr,
	})
}
