package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tokokita/api/internal/platform/requestctx"
)

// Error is the JSON error envelope every handler returns. Code is a stable
// machine-readable identifier; Message is safe to show to the caller.
type Error struct {
	Code    string
	Message string
	Status  int
}

// NewError builds an error envelope, clamping code and message so oversized
// or multi-line values cannot leak into responses.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clamp(code, 80),
		Message: clamp(message, 512),
		Status:  status,
	}
}

// WriteError renders the envelope as JSON. The request id is resolved from
// the chi middleware first, then from the request context.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	requestID := clamp(middleware.GetReqID(ctx), 80)
	if requestID == "" {
		requestID = clamp(requestctx.RequestID(ctx), 80)
	}

	payload := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  err.Status,
	}
	if requestID != "" {
		payload["request_id"] = requestID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(payload)
}

func clamp(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
