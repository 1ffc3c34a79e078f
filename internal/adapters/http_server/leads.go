package httpserver

import (
	"net/http"
	"strconv"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

func (h *Handlers) createLead(w http.ResponseWriter, r *http.Request) {
	var in app.LeadInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Leads.Create(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handlers) listLeads(w http.ResponseWriter, r *http.Request) {
	q := domain.LeadsQuery{Status: domain.LeadStatus(r.URL.Query().Get("status"))}
	var err error
	if q.Page, err = intQuery(r, "page", 1); err != nil {
		writeError(w, r, err)
		return
	}
	if q.Limit, err = intQuery(r, "limit", 20); err != nil {
		writeError(w, r, err)
		return
	}
	if s := r.URL.Query().Get("property_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, r, domain.Invalid("property_id must be an integer"))
			return
		}
		q.PropertyID = &id
	}
	page, err := h.Leads.List(r.Context(), mustPrincipal(r), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) getLead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Leads.Get(r.Context(), mustPrincipal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) updateLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Status domain.LeadStatus `json:"status"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Leads.SetStatus(r.Context(), mustPrincipal(r), id, in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) deleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Leads.Delete(r.Context(), mustPrincipal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
