package navigator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Meta holds metadata for every rendered view-model.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// ViewError is the error half of an envelope, rendered as an empty panel with
// a message by the shell.
type ViewError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the standard view-model wrapper for a page.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ViewError `json:"error"`
	Meta  Meta       `json:"meta"`
}

func newMeta() Meta {
	return Meta{
		RequestID: uuid.New().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope, log *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Errorw("failed to encode view-model", "error", err)
	}
}

func writeData(w http.ResponseWriter, data any, log *zap.SugaredLogger) {
	writeEnvelope(w, http.StatusOK, Envelope{Data: data, Meta: newMeta()}, log)
}

func writeError(w http.ResponseWriter, code, message string, log *zap.SugaredLogger) {
	writeEnvelope(w, http.StatusOK, Envelope{
		Error: &ViewError{Code: code, Message: message},
		Meta:  newMeta(),
	}, log)
}
