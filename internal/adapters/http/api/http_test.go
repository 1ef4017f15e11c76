package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/brewrank/internal/adapters/auth"
	"github.com/okian/brewrank/internal/adapters/http/api"
	"github.com/okian/brewrank/internal/adapters/repository"
	service "github.com/okian/brewrank/internal/app"
	"github.com/okian/brewrank/internal/domain/dedupe"
	"github.com/okian/brewrank/internal/domain/ranking"
	"github.com/okian/brewrank/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type testServer struct {
	server *httptest.Server
	tokens *auth.Verifier
}

func newTestServer(ctx context.Context) (*testServer, func()) {
	n := 0
	catalog := repository.NewMemoryCatalog(repository.WithBeerIDs(func() string {
		n++
		return fmt.Sprintf("beer-%d", n)
	}))
	svc := service.New(
		service.WithCatalog(catalog),
		service.WithSessionSecret("http-test-session"),
		service.WithSeedCatalog(true),
		service.WithMaxSearchLimit(10),
	)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	tokens, err := auth.NewVerifier("http-test-auth")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, tokens, svc, 10).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	return &testServer{server: srv, tokens: tokens}, func() {
		srv.Close()
		svc.Stop()
	}
}

func (ts *testServer) do(method, path, owner, body string) *http.Response {
	req, err := http.NewRequest(method, ts.server.URL+path, strings.NewReader(body))
	if err != nil {
		panic(err)
	}
	if owner != "" {
		token, err := ts.tokens.Issue(owner)
		if err != nil {
			panic(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	return resp
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		panic(err)
	}
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer(t *testing.T) {
	Convey("Given an API server over a seeded service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ts, closeAll := newTestServer(ctx)
		defer closeAll()

		Convey("When probing health", func() {
			resp := ts.do(http.MethodGet, "/healthz", "", "")

			Convey("Then it should be ok", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decode[map[string]string](resp)["status"], ShouldEqual, "ok")
			})
		})

		Convey("When fetching stats", func() {
			resp := ts.do(http.MethodGet, "/stats", "", "")

			Convey("Then the catalog size should be reported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				stats := decode[map[string]any](resp)
				So(stats["catalogBeers"], ShouldEqual, 5.0)
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When scraping metrics", func() {
			resp := ts.do(http.MethodGet, "/metrics", "", "")
			defer resp.Body.Close()

			Convey("Then the exposition should be served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When searching beers", func() {
			resp := ts.do(http.MethodGet, "/beers/search?type=double%20ipa&limit=5", "", "")

			Convey("Then matching beers should come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				beers := decode[[]types.Beer](resp)
				So(beers, ShouldHaveLength, 2)
			})
		})

		Convey("When searching with a bad limit", func() {
			resp := ts.do(http.MethodGet, "/beers/search?limit=zero", "", "")

			Convey("Then it should be a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](resp).Code, ShouldEqual, "invalid_argument")
			})
		})

		Convey("When fetching a beer", func() {
			ok := ts.do(http.MethodGet, "/beers/beer-2", "", "")
			missing := ts.do(http.MethodGet, "/beers/beer-99", "", "")
			defer missing.Body.Close()

			Convey("Then known ids resolve and unknown ones are not found", func() {
				So(ok.StatusCode, ShouldEqual, http.StatusOK)
				So(decode[types.Beer](ok).Name, ShouldEqual, "Guinness Draught")
				So(missing.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When adding a beer without a bearer token", func() {
			resp := ts.do(http.MethodPost, "/beers", "", `{"name":"Zombie Dust","brewery":"3 Floyds","type":"Pale Ale"}`)

			Convey("Then it should be unauthorized", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
				So(resp.Header.Get("WWW-Authenticate"), ShouldContainSubstring, "Bearer")
				So(decode[errorBody](resp).Code, ShouldEqual, "unauthenticated")
			})
		})

		Convey("When adding beers with a bearer token", func() {
			created := ts.do(http.MethodPost, "/beers", "user-1", `{"name":"Zombie Dust","brewery":"3 Floyds","type":"Pale Ale","abv":6.2}`)
			dup := ts.do(http.MethodPost, "/beers", "user-1", `{"name":"zombie dust","brewery":"3 FLOYDS","type":"Pale Ale"}`)
			empty := ts.do(http.MethodPost, "/beers", "user-1", "")
			defer dup.Body.Close()
			defer empty.Body.Close()

			Convey("Then new beers are created and duplicates conflict", func() {
				So(created.StatusCode, ShouldEqual, http.StatusCreated)
				b := decode[types.Beer](created)
				So(b.ID, ShouldEqual, "beer-6")
				So(*b.ABV, ShouldEqual, 6.2)
				So(dup.StatusCode, ShouldEqual, http.StatusConflict)
				So(empty.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a placement session runs over HTTP", func() {
			first := decode[types.Placement](ts.do(http.MethodPost, "/lists/favorites/beers/beer-1", "user-1", ""))
			pending := decode[types.Placement](ts.do(http.MethodPost, "/lists/favorites/beers/beer-2", "user-1", ""))
			body := fmt.Sprintf(`{"session_token":%q,"winner_id":"beer-2"}`, pending.SessionToken)
			done := decode[types.Placement](ts.do(http.MethodPost, "/lists/favorites/comparisons", "user-1", body))
			replay := ts.do(http.MethodPost, "/lists/favorites/comparisons", "user-1", body)
			ranked := decode[types.RankedList](ts.do(http.MethodGet, "/lists/favorites", "user-1", ""))

			Convey("Then the candidate should be placed above the opponent", func() {
				So(first.State, ShouldEqual, "committed")
				So(first.Entry.EloScore, ShouldEqual, 1000)
				So(pending.State, ShouldEqual, "awaiting_comparison")
				So(pending.Prompt.Opponent.ID, ShouldEqual, "beer-1")
				So(pending.ExpiresAt, ShouldNotBeNil)
				So(done.State, ShouldEqual, "committed")
				So(done.Entry.EloScore, ShouldEqual, 1016)
				So(replay.StatusCode, ShouldEqual, http.StatusBadRequest)
				replay.Body.Close()
				So(ranked.Beers, ShouldHaveLength, 2)
				So(ranked.Beers[0].ID, ShouldEqual, "beer-2")
				So(ranked.Beers[0].Position, ShouldEqual, 1)
				So(ranked.Beers[1].EloScore, ShouldEqual, 984)
			})

			Convey("And another owner uses the token", func() {
				next := decode[types.Placement](ts.do(http.MethodPost, "/lists/favorites/beers/beer-3", "user-1", ""))
				stolen := ts.do(http.MethodPost, "/lists/favorites/comparisons", "user-2",
					fmt.Sprintf(`{"session_token":%q,"winner_id":"beer-3"}`, next.SessionToken))

				Convey("Then it should be forbidden", func() {
					So(stolen.StatusCode, ShouldEqual, http.StatusForbidden)
					So(decode[errorBody](stolen).Code, ShouldEqual, "permission_denied")
				})
			})

			Convey("And the next session is abandoned", func() {
				next := decode[types.Placement](ts.do(http.MethodPost, "/lists/favorites/beers/beer-3", "user-1", ""))
				token := fmt.Sprintf(`{"session_token":%q}`, next.SessionToken)
				abandoned := ts.do(http.MethodPost, "/lists/favorites/comparisons/abandon", "user-1", token)
				after := decode[types.RankedList](ts.do(http.MethodGet, "/lists/favorites", "user-1", ""))

				Convey("Then the candidate should not be in the list", func() {
					So(abandoned.StatusCode, ShouldEqual, http.StatusOK)
					So(decode[types.Placement](abandoned).State, ShouldEqual, "abandoned")
					So(after.Beers, ShouldHaveLength, 2)
				})
			})

			Convey("And a direct comparison is recorded", func() {
				resp := ts.do(http.MethodPost, "/lists/favorites/compare", "user-1",
					`{"beer1_id":"beer-1","beer2_id":"beer-2","winner_id":"beer-1"}`)

				Convey("Then both entries should be updated", func() {
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
					res := decode[types.ComparisonResult](resp)
					So(res.Beer1.EloScore, ShouldBeGreaterThan, 984)
					So(res.Beer2.EloScore, ShouldBeLessThan, 1016)
				})
			})

			Convey("And an entry is removed", func() {
				removed := ts.do(http.MethodDelete, "/lists/favorites/beers/beer-1", "user-1", "")
				again := ts.do(http.MethodDelete, "/lists/favorites/beers/beer-1", "user-1", "")
				removed.Body.Close()
				again.Body.Close()
				lists := decode[[]types.List](ts.do(http.MethodGet, "/lists", "user-1", ""))

				Convey("Then it should be gone", func() {
					So(removed.StatusCode, ShouldEqual, http.StatusNoContent)
					So(again.StatusCode, ShouldEqual, http.StatusNotFound)
					So(lists, ShouldHaveLength, 1)
					So(lists[0].Beers, ShouldHaveLength, 1)
				})
			})
		})

		Convey("When a route is called with the wrong method", func() {
			resp := ts.do(http.MethodPut, "/beers/search", "", "")
			defer resp.Body.Close()

			Convey("Then the mux should reject it", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestWrap(t *testing.T) {
	Convey("Given errors from the domain", t, func() {
		cases := []struct {
			err    error
			status int
		}{
			{ranking.ErrBeerNotFound, http.StatusNotFound},
			{ranking.ErrInvalidArgument, http.StatusBadRequest},
			{ranking.ErrPermissionDenied, http.StatusForbidden},
			{ranking.ErrConflict, http.StatusConflict},
			{fmt.Errorf("%w: record step: %w", ranking.ErrUnavailable, dedupe.ErrFull), http.StatusServiceUnavailable},
			{auth.ErrExpiredToken, http.StatusUnauthorized},
			{errors.New("boom"), http.StatusInternalServerError},
		}

		Convey("Then each should map to its status", func() {
			for _, c := range cases {
				err := api.Wrap("op", c.err)
				var apiErr *api.Error
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Kind.Status(), ShouldEqual, c.status)
				So(errors.Is(err, c.err), ShouldBeTrue)
			}
		})

		Convey("Then an explicit kind should win over the chain", func() {
			err := api.Wrap("outer", api.WrapKind("inner", api.KindUnavailable, ranking.ErrNotFound))
			var apiErr *api.Error
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Kind.Status(), ShouldEqual, http.StatusServiceUnavailable)
			So(err.Error(), ShouldEqual, "outer: inner: not found")
		})

		Convey("Then nil should stay nil", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
			So(api.WrapKind("op", api.KindInvalid, nil), ShouldBeNil)
		})
	})
}
