package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"
)

var validate = validator.New()

// Every endpoint answers with the same envelope: a "status" field that
// is "success" or "error", plus payload or message fields.

func writeSuccess(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}

// decodeAndValidate parses a JSON body into dst and runs struct
// validation, answering the request itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Debug.Printf("Validation failed for %s: %v", r.URL.Path, err)
		writeError(w, http.StatusBadRequest, "Missing or malformed fields")
		return false
	}
	return true
}
