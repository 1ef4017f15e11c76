package api

import (
	"net/http"
)

// ComparisonsHandler serves the placement session and direct comparison
// endpoints.
type ComparisonsHandler struct {
	deps Dependencies
}

// NewComparisonsHandler creates a new comparisons handler.
func NewComparisonsHandler(deps Dependencies) *ComparisonsHandler {
	return &ComparisonsHandler{deps: deps}
}

type submitRequest struct {
	SessionToken string `json:"session_token"`
	WinnerID     string `json:"winner_id"`
}

type abandonRequest struct {
	SessionToken string `json:"session_token"`
}

type compareRequest struct {
	Beer1ID  string `json:"beer1_id"`
	Beer2ID  string `json:"beer2_id"`
	WinnerID string `json:"winner_id"`
}

// HandleSubmit handles POST /lists/{name}/comparisons.
func (h *ComparisonsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.deps.SubmitComparison(r.Context(), o, r.PathValue("name"), req.SessionToken, req.WinnerID)
	if err != nil {
		writeError(w, Wrap("submit comparison", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleAbandon handles POST /lists/{name}/comparisons/abandon.
func (h *ComparisonsHandler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req abandonRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.deps.AbandonSession(r.Context(), o, r.PathValue("name"), req.SessionToken)
	if err != nil {
		writeError(w, Wrap("abandon session", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCompare handles POST /lists/{name}/compare.
func (h *ComparisonsHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req compareRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.deps.Compare(r.Context(), o, r.PathValue("name"), req.Beer1ID, req.Beer2ID, req.WinnerID)
	if err != nil {
		writeError(w, Wrap("compare", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
