package httpserver

import (
	"net/http"

	"estate_api/internal/app"
)

func (h *Handlers) listAmenities(w http.ResponseWriter, r *http.Request) {
	out, err := h.Amenities.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createAmenity(w http.ResponseWriter, r *http.Request) {
	var in app.AmenityInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Amenities.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handlers) updateAmenity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.AmenityInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Amenities.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) deleteAmenity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Amenities.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
