package httpserver

import (
	"net/http"

	"estate_api/internal/app"
)

func (h *Handlers) track(w http.ResponseWriter, r *http.Request) {
	var in app.TrackInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Analytics.Track(r.Context(), principal(r), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}
