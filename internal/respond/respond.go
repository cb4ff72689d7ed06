// Package respond writes the JSON bodies shared by every handler.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayush/autos-marketplace/backend/internal/validation"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Invalid writes a 400. Validation failures carry the field list, any
// other decode problem its message.
func Invalid(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		JSON(w, http.StatusBadRequest, map[string]interface{}{"errors": verrs})
		return
	}
	Error(w, http.StatusBadRequest, err.Error())
}

// Upstream writes a 502 carrying the storage error as is.
func Upstream(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadGateway, err.Error())
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "unauthorized")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "Method not Allowed")
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusNotFound, "route not found")
}
