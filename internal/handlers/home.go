package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hiddengems-web/internal/models"
	"hiddengems-web/internal/services"
)

// HomeHandler serves the public landing page: artisan discovery, the
// featured carousel and upcoming craft fairs.
type HomeHandler struct {
	authService    *services.AuthService
	carouselWindow int
}

func NewHomeHandler(authService *services.AuthService, carouselWindow int) *HomeHandler {
	if carouselWindow <= 0 {
		carouselWindow = 3
	}
	return &HomeHandler{authService: authService, carouselWindow: carouselWindow}
}

func (h *HomeHandler) Artisans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	artisans, err := services.SearchArtisans(r.Context(), h.authService.Public(), services.ArtisanSearch{
		Skill:    q.Get("skill"),
		Location: q.Get("location"),
		Query:    q.Get("q"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"artisans": artisans,
		"count":    len(artisans),
	})
}

// Carousel returns the visible window after applying step to index. The
// browser keeps the index and sends it back on every rotation.
func (h *HomeHandler) Carousel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	index := 0
	if s := q.Get("index"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid carousel index", r))
			return
		}
		index = n
	}

	artisans, err := h.authService.Public().ListArtisans(r.Context(), models.ArtisanQuery{})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c := services.NewCarousel(len(artisans), h.carouselWindow, index)
	switch q.Get("step") {
	case "next":
		c = c.Next()
	case "prev":
		c = c.Prev()
	case "":
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "step must be next or prev", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"index":    c.Index,
		"window":   c.Window,
		"total":    c.Len,
		"artisans": services.VisibleItems(c, artisans),
	})
}

func (h *HomeHandler) Artisan(w http.ResponseWriter, r *http.Request) {
	artisan, err := h.authService.Public().GetArtisan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artisan)
}

func (h *HomeHandler) ArtisanProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.authService.Public().ListProducts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// Events lists craft fairs, optionally narrowed to a location and date on
// the backend and to a start-date range locally.
func (h *HomeHandler) Events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, ok := eventFilter(w, r)
	if !ok {
		return
	}

	events, err := services.SearchEvents(r.Context(), h.authService.Public(), services.EventSearch{
		Location: q.Get("location"),
		Date:     q.Get("date"),
		Filter:   filter,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.EventList{Results: events, Count: len(events)})
}

// eventFilter reads from/to/venue; a malformed date is rejected rather
// than silently ignored.
func eventFilter(w http.ResponseWriter, r *http.Request) (services.EventFilter, bool) {
	q := r.URL.Query()
	f := services.EventFilter{Venue: q.Get("venue")}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, ok := services.ParseEventDate(v)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{p.name: "Invalid date format. Use YYYY-MM-DD."}, r))
			return f, false
		}
		*p.dst = t
	}
	return f, true
}

// Health reports the gateway as up and includes the backend's own health
// check, which may fail independently.
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	backend := "ok"
	if status, err := h.authService.Public().Health(r.Context()); err != nil {
		backend = "unreachable"
	} else if status.Status != "" {
		backend = status.Status
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": backend})
}
