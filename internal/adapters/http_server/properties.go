package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

// parseFilter reads the search query string. Malformed numbers are
// reported together as a validation error.
func parseFilter(q url.Values) (domain.PropertyFilter, error) {
	f := domain.PropertyFilter{
		Q:            strings.TrimSpace(q.Get("q")),
		City:         q.Get("city"),
		State:        q.Get("state"),
		Country:      q.Get("country"),
		ListingType:  domain.ListingType(q.Get("listing_type")),
		PropertyType: q.Get("property_type"),
		Sort:         domain.PropertySort(q.Get("sort")),
	}
	ve := &app.ValidationError{Fields: map[string]string{}}
	bad := func(k, msg string) { ve.Fields[k] = msg }

	dec := func(k string) *decimal.Decimal {
		s := q.Get(k)
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			bad(k, "must be a number")
			return nil
		}
		return &d
	}
	flt := func(k string) *float64 {
		s := q.Get(k)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bad(k, "must be a number")
			return nil
		}
		return &v
	}
	num := func(k string) int {
		s := q.Get(k)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			bad(k, "must be an integer")
		}
		return n
	}

	f.MinPrice, f.MaxPrice = dec("min_price"), dec("max_price")
	f.MinBaths, f.MinArea, f.MaxArea = flt("min_baths"), flt("min_area"), flt("max_area")
	if s := q.Get("min_beds"); s != "" {
		n := num("min_beds")
		f.MinBeds = &n
	}
	f.Page, f.Limit = num("page"), num("limit")
	if s := q.Get("featured"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			bad("featured", "must be true or false")
		}
		f.Featured = &b
	}
	if s := q.Get("owner_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			bad("owner_id", "must be an integer")
		}
		f.OwnerID = &id
	}
	for _, a := range strings.Split(q.Get("amenities"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			f.Amenities = append(f.Amenities, a)
		}
	}
	for _, s := range strings.Split(q.Get("status"), ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		st := domain.PropertyStatus(s)
		if !st.Valid() {
			bad("status", "unknown status "+s)
			continue
		}
		f.Statuses = append(f.Statuses, st)
	}
	if f.ListingType != "" && !f.ListingType.Valid() {
		bad("listing_type", "must be one of: sale rent")
	}
	if f.Sort != "" && !f.Sort.Valid() {
		bad("sort", "must be one of: newest oldest price_asc price_desc")
	}
	if len(ve.Fields) > 0 {
		return f, ve
	}
	return f, nil
}

func (h *Handlers) searchProperties(w http.ResponseWriter, r *http.Request) {
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

func (h *Handlers) featuredProperties(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 6)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Properties.Featured(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) myProperties(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Properties.Mine(r.Context(), mustPrincipal(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.Properties.Get(r.Context(), id, principal(r), remoteIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body := calcETagAndBody(resp)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getProperty body")
	}
}

func (h *Handlers) similarProperties(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 4)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Properties.Similar(r.Context(), id, principal(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var in app.PropertyInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Properties.Create(r.Context(), mustPrincipal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) updateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.PropertyPatch
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Properties.Update(r.Context(), mustPrincipal(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Properties.Delete(r.Context(), mustPrincipal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Properties.Locations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) searchLocations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Properties.SearchLocations(r.Context(), r.URL.Query().Get("q"), 10)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
