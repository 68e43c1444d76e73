// Package response provides the JSON envelope helpers used by the HTTP API.
// Standard endpoints wrap payloads in {"data": ...} and errors in
// {"error": {"code", "message", "details"}}. The moderation submit and poll
// endpoints use flat shapes instead; see Plain and Detail.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type envelope struct {
	Data interface{} `json:"data,omitempty"`
	Meta interface{} `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// PaginationMeta describes the page of a collection response.
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func write(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encoding response body", "error", err)
	}
}

// JSON writes data wrapped in the standard envelope.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, envelope{Data: data})
}

// Created writes a 201 with the given data.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 with an empty body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Collection writes a paginated list with meta.
func Collection(w http.ResponseWriter, data interface{}, meta PaginationMeta) {
	write(w, http.StatusOK, envelope{Data: data, Meta: meta})
}

// Error writes the standard error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// ErrorWithDetails writes the standard error envelope with field details.
func ErrorWithDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	write(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message, Details: details}})
}

// Plain writes body as-is with no envelope. Used by the moderation
// submission and polling endpoints, whose wire shapes are part of the
// published client contract.
func Plain(w http.ResponseWriter, status int, body interface{}) {
	write(w, status, body)
}

// Detail writes the flat {"detail": ...} error shape used by the moderation
// endpoints.
func Detail(w http.ResponseWriter, status int, detail string) {
	write(w, status, map[string]string{"detail": detail})
}
