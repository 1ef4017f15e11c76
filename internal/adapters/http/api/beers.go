package api

import (
	"net/http"
	"strconv"
	"strings"

	model "github.com/okian/brewrank/internal/domain/model"
)

// BeersHandler serves the catalog endpoints.
type BeersHandler struct {
	deps           Dependencies
	maxSearchLimit int
}

// NewBeersHandler creates a new catalog handler.
func NewBeersHandler(deps Dependencies, maxSearchLimit int) *BeersHandler {
	return &BeersHandler{deps: deps, maxSearchLimit: maxSearchLimit}
}

type addBeerRequest struct {
	Name        string   `json:"name"`
	Brewery     string   `json:"brewery"`
	Type        string   `json:"type"`
	ABV         *float64 `json:"abv,omitempty"`
	IBU         *int     `json:"ibu,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// HandleSearch handles GET /beers/search.
func (h *BeersHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, NewKind("search beers", KindInvalid, "limit must be a positive integer"))
			return
		}
		limit = min(n, h.maxSearchLimit)
	}
	beers, err := h.deps.SearchBeers(r.Context(), q.Get("q"), q.Get("type"), limit)
	if err != nil {
		writeError(w, Wrap("search beers", err))
		return
	}
	writeJSON(w, http.StatusOK, beers)
}

// HandleGet handles GET /beers/{id}.
func (h *BeersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	beer, err := h.deps.GetBeer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap("get beer", err))
		return
	}
	writeJSON(w, http.StatusOK, beer)
}

// HandleAdd handles POST /beers.
func (h *BeersHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addBeerRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, err)
		return
	}
	beer, err := h.deps.AddBeer(r.Context(), model.NewBeer{
		Name:        req.Name,
		Brewery:     req.Brewery,
		Type:        req.Type,
		ABV:         req.ABV,
		IBU:         req.IBU,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(w, Wrap("add beer", err))
		return
	}
	writeJSON(w, http.StatusCreated, beer)
}
