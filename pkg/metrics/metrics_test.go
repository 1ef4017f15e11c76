package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register under the brewrank namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.sessionsCommitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "brewrank_ranking_sessions_committed_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.replaysRejected.Inc()

			Convey("Then names and labels should follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "test_sub_replays_rejected_total" {
						continue
					}
					found = true
					So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating two managers on one registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second should panic on duplicate registration", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager rebuilt with a namespace and an instance label", t, func() {
		Init(WithNamespace("taproom"), WithConstLabels(map[string]string{"instance": "edge-1"}))
		defer Init()
		RecordSessionCommitted()

		Convey("Then the served registry should expose the renamed, labelled metric", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			var found bool
			for _, f := range families {
				if f.GetName() != "taproom_ranking_sessions_committed_total" {
					continue
				}
				found = true
				So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "edge-1")
			}
			So(found, ShouldBeTrue)

			rec := httptest.NewRecorder()
			Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(rec.Body.String(), ShouldContainSubstring, `taproom_ranking_sessions_committed_total{instance="edge-1"} 1`)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ranking outcomes", func() {
			before := testutil.ToFloat64(globalManager.candidates.WithLabelValues("merged"))
			RecordCandidate("merged")
			RecordCandidate("merged")

			Convey("Then the labelled counter should grow", func() {
				So(testutil.ToFloat64(globalManager.candidates.WithLabelValues("merged")), ShouldEqual, before+2)
			})
		})

		Convey("When recording session counters", func() {
			applied := testutil.ToFloat64(globalManager.comparisonsApplied)
			committed := testutil.ToFloat64(globalManager.sessionsCommitted)
			RecordComparisonApplied()
			RecordSessionCommitted()

			Convey("Then each should move by one", func() {
				So(testutil.ToFloat64(globalManager.comparisonsApplied), ShouldEqual, applied+1)
				So(testutil.ToFloat64(globalManager.sessionsCommitted), ShouldEqual, committed+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateCatalogBeers(12)
			UpdateListsTotal(3)
			UpdateStepGuard(40, 2)

			Convey("Then the gauges should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.catalogBeers), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.listsTotal), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.guardSize), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.guardEvicted), ShouldEqual, 2)
			})
		})

		Convey("When recording store operations", func() {
			before := testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("memory", "insert_entry"))
			RecordStoreOperation("memory", "insert_entry", time.Now(), nil)
			RecordStoreOperation("memory", "insert_entry", time.Now(), errors.New("boom"))

			Convey("Then only the failed call should count as an error", func() {
				So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("memory", "insert_entry")), ShouldEqual, before+1)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordHTTPRequest("/lists/{name}", "GET", "200")
					RecordHTTPRequestDuration("/lists/{name}", "GET", "200", 4.2)
					RecordErrorByComponent("api", "not_found")
					RecordErrorByEndpoint("/beers/{id}", "GET", "not_found")
					RecordErrorByKind("conflict")
					RecordEntryRemoved()
					RecordDirectComparison()
					RecordSessionAbandoned()
					RecordConflictMerge()
					RecordReplayRejected()
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics handler", t, func() {
		RecordCandidate("inserted")
		rec := httptest.NewRecorder()
		Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Convey("Then it should expose the custom registry", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(strings.Contains(rec.Body.String(), "brewrank_ranking_candidates_total"), ShouldBeTrue)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
