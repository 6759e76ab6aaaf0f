package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/otieno-dev/chama_tracker/internal/notify"
)

// StreamEvents pushes table change notifications to the client over
// server-sent events. Clients re-fetch the affected table when an event
// arrives. A plain handler because the connection stays open.
func (api *Api) StreamEvents(hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			token = r.URL.Query().Get("token") // EventSource cannot set headers
		}
		if token == "" {
			http.Error(w, "authorization failed: token is required.", 401)
			return
		}
		if _, err := api.Service.CheckSession(r.Context(), token); err != nil {
			http.Error(w, fmt.Sprintf("authorization failed: %s", err.Error()), 401)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming is not supported", 500)
			return
		}

		var tables []string
		if tablesStr := r.URL.Query().Get("tables"); tablesStr != "" {
			tables = strings.Split(tablesStr, ",")
		}

		events, cancel := hub.Subscribe(tables...)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(200)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
