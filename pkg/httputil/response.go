package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/cwrk-planet/chatsync/pkg/logger"
)

type envelope map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.For("http").Error("write json response failed", "err", err)
	}
}

// OK wraps data as {"data": ...}.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope{"data": data})
}

// Error writes {"error": {"message": ..., "reason": ...}}. reason is omitted when empty.
func Error(w http.ResponseWriter, status int, msg, reason string) {
	body := envelope{"message": msg}
	if reason != "" {
		body["reason"] = reason
	}
	JSON(w, status, envelope{"error": body})
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
