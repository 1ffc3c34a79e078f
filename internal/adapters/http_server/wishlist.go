package httpserver

import "net/http"

func (h *Handlers) listWishlist(w http.ResponseWriter, r *http.Request) {
	out, err := h.Wishlist.List(r.Context(), mustPrincipal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) addWishlist(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PropertyID int64 `json:"property_id"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Wishlist.Add(r.Context(), mustPrincipal(r), in.PropertyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handlers) removeWishlist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "propertyId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Wishlist.Remove(r.Context(), mustPrincipal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) wishlistStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "propertyId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.Wishlist.Saved(r.Context(), mustPrincipal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}
