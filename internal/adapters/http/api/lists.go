package api

import (
	"net/http"
)

// ListsHandler serves the per-owner list endpoints.
type ListsHandler struct {
	deps Dependencies
}

// NewListsHandler creates a new lists handler.
func NewListsHandler(deps Dependencies) *ListsHandler {
	return &ListsHandler{deps: deps}
}

// HandleLists handles GET /lists.
func (h *ListsHandler) HandleLists(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	lists, err := h.deps.Lists(r.Context(), o)
	if err != nil {
		writeError(w, Wrap("lists", err))
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleRanked handles GET /lists/{name}.
func (h *ListsHandler) HandleRanked(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ranked, err := h.deps.RankedList(r.Context(), o, r.PathValue("name"), r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, Wrap("ranked list", err))
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// HandleAddBeer handles POST /lists/{name}/beers/{beerID}. The response is
// either the committed entry or the first comparison prompt.
func (h *ListsHandler) HandleAddBeer(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.deps.AddCandidate(r.Context(), o, r.PathValue("name"), r.PathValue("beerID"), r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, Wrap("add candidate", err))
		return
	}
	status := http.StatusOK
	if p.Entry != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// HandleRemoveBeer handles DELETE /lists/{name}/beers/{beerID}.
func (h *ListsHandler) HandleRemoveBeer(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.RemoveEntry(r.Context(), o, r.PathValue("name"), r.PathValue("beerID")); err != nil {
		writeError(w, Wrap("remove entry", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
