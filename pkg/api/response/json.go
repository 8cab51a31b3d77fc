// Package response writes the JSON bodies shared by the API handlers. Error
// bodies always carry the shape {"error": "<message>"} so every surface can
// present them the same way.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lennythecreator/sphinx/pkg/logger"
)

type errorBody struct {
	Error string `json:"error"`
}

// OK writes data as a 200 JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Encoding response body", logger.Err(err))
	}
}

// Error writes the uniform error body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: message})
}
