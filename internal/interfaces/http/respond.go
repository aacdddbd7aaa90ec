package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
	"github.com/MJSteenberg/xfinance/internal/parser"
)

// Every response is a tagged envelope: {"ok": ...} or {"error": {...}}.
// Clients switch on the tag, never on the presence of optional fields.
type okEnvelope struct {
	OK any `json:"ok"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Index is the zero-based offending record for parse/normalization
	// failures, so the UI can point at the exact row.
	Index *int `json:"index,omitempty"`
}

func writeOK(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(okEnvelope{OK: payload})
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeErrorBody(w, status, errorBody{Kind: kind, Message: message})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{Error: body})
}

// writeDomainError maps engine errors onto HTTP statuses with their
// structured kind intact. Unknown errors are logged and masked.
func writeDomainError(w http.ResponseWriter, err error) {
	var parseErr *parser.Error
	if errors.As(err, &parseErr) {
		status := http.StatusBadRequest
		if parseErr.Kind == parser.ParseTimeout {
			status = http.StatusRequestTimeout
		}
		body := errorBody{Kind: string(parseErr.Kind), Message: parseErr.Detail}
		if parseErr.Row >= 0 {
			row := parseErr.Row
			body.Index = &row
		}
		writeErrorBody(w, status, body)
		return
	}

	var normErr *ledger.NormalizationError
	if errors.As(err, &normErr) {
		index := normErr.Index
		writeErrorBody(w, http.StatusBadRequest, errorBody{
			Kind:    string(normErr.Kind),
			Message: normErr.Detail,
			Index:   &index,
		})
		return
	}

	var storageErr *ledger.StorageError
	if errors.As(err, &storageErr) {
		// Transient: the atomic write rolled back, the caller may retry.
		writeError(w, http.StatusServiceUnavailable, "storage_failure",
			"could not store the statement, please retry")
		return
	}

	log.Printf("Unhandled error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}
