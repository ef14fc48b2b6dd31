package errors

import (
	"encoding/json"
	"net/http"
)

// Codes used in the error envelope.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeRateLimited  = "rate_limited"
	CodeTooLarge     = "payload_too_large"
	CodeInternal     = "internal_error"
)

// ErrorResponse represents the canonical error envelope returned by Steppy APIs.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ToStatusCode maps an error code to an HTTP status for default responses.
func ToStatusCode(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "conflict":
		return http.StatusConflict
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// CodeFor is the inverse of ToStatusCode for the statuses Steppy emits.
func CodeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusRequestEntityTooLarge:
		return CodeTooLarge
	default:
		return CodeInternal
	}
}

// Write sends the envelope with the status derived from code.
func Write(w http.ResponseWriter, code, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ToStatusCode(code))
	_ = json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message, RequestID: requestID})
}
