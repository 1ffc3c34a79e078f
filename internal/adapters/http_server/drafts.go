package httpserver

import (
	"net/http"

	"estate_api/internal/app"
)

func (h *Handlers) listDrafts(w http.ResponseWriter, r *http.Request) {
	out, err := h.Drafts.List(r.Context(), mustPrincipal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getDraft(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Drafts.Get(r.Context(), mustPrincipal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) createDraft(w http.ResponseWriter, r *http.Request) {
	var in app.DraftInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Drafts.Create(r.Context(), mustPrincipal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handlers) updateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.DraftInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Drafts.Update(r.Context(), mustPrincipal(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) deleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Drafts.Delete(r.Context(), mustPrincipal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) publishDraft(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Drafts.Publish(r.Context(), mustPrincipal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
