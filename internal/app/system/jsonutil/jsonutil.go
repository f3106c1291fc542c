// Package jsonutil provides helper functions for JSON API responses.
package jsonutil

import (
	"encoding/json"
	"net/http"

	"github.com/kirubae/filegate/internal/app/system/apperr"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 OK JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created JSON response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Error writes an error response with the given status code.
// The response body is {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// AppError writes err using its classification for the status code and its
// user-facing message for the body. Unclassified errors become a 500 with a
// generic message; internal detail never reaches the client.
func AppError(w http.ResponseWriter, err error) {
	Error(w, apperr.StatusOf(err), apperr.MessageOf(err))
}

// Decode reads and decodes JSON from the request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
