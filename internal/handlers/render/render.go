package render

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Message for any fault the client can do nothing about
const InternalErrorMessage = "An unexpected error occurred"

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// Render {"status": status} with 200
func Status(w http.ResponseWriter, status string) {
	JSON(w, StatusResponse{Status: status})
}

// Render {"error": message} with the code
func Error(w http.ResponseWriter, message string, code int) {
	JSONWithStatus(w, ErrorResponse{Error: message}, code)
}

// Render opaque 500
func InternalError(w http.ResponseWriter) {
	Error(w, InternalErrorMessage, http.StatusInternalServerError)
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
