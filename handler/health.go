package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// NewHealthHandler returns a handler that reports the service as up.
func NewHealthHandler(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, log)
	}
}
