package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"

	// TableVersionHeader carries the table version on metadata, version,
	// and query responses.
	TableVersionHeader = "Delta-Table-Version"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeNDJSON writes one JSON document per line. Lines are encoded before
// the header is sent so an encoding failure can still become a 500.
func writeNDJSON(w http.ResponseWriter, version int64, lines []any) error {
	body := make([]byte, 0, 512*len(lines))
	for _, line := range lines {
		b, err := json.Marshal(line)
		if err != nil {
			return err
		}
		body = append(body, b...)
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", contentTypeNDJSON)
	w.Header().Set(TableVersionHeader, strconv.FormatInt(version, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return nil
}
