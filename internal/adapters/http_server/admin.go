package httpserver

import (
	"net/http"
	"strings"

	"estate_api/internal/domain"
)

func (h *Handlers) adminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Admin.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) adminUsers(w http.ResponseWriter, r *http.Request) {
	q := domain.UsersQuery{
		Q:    strings.TrimSpace(r.URL.Query().Get("q")),
		Role: domain.Role(r.URL.Query().Get("role")),
	}
	var err error
	if q.Page, err = intQuery(r, "page", 1); err != nil {
		writeError(w, r, err)
		return
	}
	if q.Limit, err = intQuery(r, "limit", 20); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Admin.Users(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) adminSetRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Role domain.Role `json:"role"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Admin.SetRole(r.Context(), mustPrincipal(r), id, in.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Admin.DeleteUser(r.Context(), mustPrincipal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) adminProperties(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Properties.Search(r.Context(), f, principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Status domain.PropertyStatus `json:"status"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Properties.SetStatus(r.Context(), id, in.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": in.Status})
}

func (h *Handlers) adminSetFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Featured *bool `json:"featured"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Featured == nil {
		writeError(w, r, domain.Invalid("featured is required"))
		return
	}
	if err := h.Properties.SetFeatured(r.Context(), id, *in.Featured); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "featured": *in.Featured})
}

func (h *Handlers) adminAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", 30)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.Admin.Analytics(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	kv, err := h.Admin.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kv)
}

func (h *Handlers) putSettings(w http.ResponseWriter, r *http.Request) {
	var kv map[string]string
	if err := decode(w, r, &kv); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Admin.PutSettings(r.Context(), kv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
