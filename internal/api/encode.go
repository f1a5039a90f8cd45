package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// writeBody encodes v as msgpack if the request's Accept header asks for it,
// else as JSON. msgpack is offered as a smaller-payload alternative for
// high-frequency pollers (e.g. a dashboard refreshing batch status); JSON
// remains the default for curl/browser use.
func writeBody(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if strings.Contains(r.Header.Get("Accept"), "application/msgpack") {
		w.Header().Set("Content-Type", "application/msgpack")
		w.WriteHeader(status)
		_ = msgpack.NewEncoder(w).Encode(v)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeBody(w, r, status, map[string]string{"error": message})
}
