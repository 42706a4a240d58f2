package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/deltasync/pkg/api"
)

// writeJSONError отвечает ошибкой в формате api.ErrorResponse
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
