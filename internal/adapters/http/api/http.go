// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/types"
	"github.com/okian/brewrank/pkg/logger"
	"github.com/okian/brewrank/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SearchBeers(ctx context.Context, text, beerType string, limit int) ([]types.Beer, error)
	GetBeer(ctx context.Context, id string) (types.Beer, error)
	AddBeer(ctx context.Context, in model.NewBeer) (types.Beer, error)

	Lists(ctx context.Context, owner string) ([]types.List, error)
	RankedList(ctx context.Context, owner, listName, beerType string) (types.RankedList, error)
	AddCandidate(ctx context.Context, owner, listName, beerID, beerType string) (types.Placement, error)
	SubmitComparison(ctx context.Context, owner, listName, token, winnerID string) (types.Placement, error)
	AbandonSession(ctx context.Context, owner, listName, token string) (types.Placement, error)
	Compare(ctx context.Context, owner, listName, beer1, beer2, winnerID string) (types.ComparisonResult, error)
	RemoveEntry(ctx context.Context, owner, listName, beerID string) error

	Health(ctx context.Context) error
}

// TokenValidator resolves a bearer token to its owner id.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	beersHandler   *BeersHandler
	listsHandler   *ListsHandler
	compareHandler *ComparisonsHandler
	auth           TokenValidator
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, tokens TokenValidator, statsProvider StatsProvider, maxSearchLimit int) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		beersHandler:   NewBeersHandler(deps, maxSearchLimit),
		listsHandler:   NewListsHandler(deps),
		compareHandler: NewComparisonsHandler(deps),
		auth:           tokens,
		logger:         logger.Get().Named("http"),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(AccessLog(s.logger, h), endpoint))
	}
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return Authenticate(s.auth, h)
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	handle("GET /stats", "stats", s.statsHandler.HandleStats)

	handle("GET /beers/search", "beers_search", s.beersHandler.HandleSearch)
	handle("GET /beers/{id}", "beers_get", s.beersHandler.HandleGet)
	handle("POST /beers", "beers_add", authed(s.beersHandler.HandleAdd))

	handle("GET /lists", "lists", authed(s.listsHandler.HandleLists))
	handle("GET /lists/{name}", "lists_ranked", authed(s.listsHandler.HandleRanked))
	handle("POST /lists/{name}/beers/{beerID}", "lists_add_beer", authed(s.listsHandler.HandleAddBeer))
	handle("DELETE /lists/{name}/beers/{beerID}", "lists_remove_beer", authed(s.listsHandler.HandleRemoveBeer))

	handle("POST /lists/{name}/comparisons", "comparisons", authed(s.compareHandler.HandleSubmit))
	handle("POST /lists/{name}/comparisons/abandon", "comparisons_abandon", authed(s.compareHandler.HandleAbandon))
	handle("POST /lists/{name}/compare", "compare", authed(s.compareHandler.HandleCompare))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err with the status of its kind. Internal errors are
// not echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	kind := kindOf(err)
	msg := err.Error()
	if kind == KindInternal {
		msg = http.StatusText(http.StatusInternalServerError)
	}
	w.Header().Set(errorKindHeader, kind.Code())
	writeJSON(w, kind.Status(), errorResponse{Code: kind.Code(), Message: msg})
}

// decodeJSON reads a single JSON object from r's body into v.
func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return WrapKind("decode body", KindInvalid, errors.New("request body is empty"))
		}
		return WrapKind("decode body", KindInvalid, err)
	}
	return nil
}
