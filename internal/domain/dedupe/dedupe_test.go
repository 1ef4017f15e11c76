package dedupe_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dedupe "github.com/okian/brewrank/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

// record claims id and fails the test on an unexpected error.
func record(ctx context.Context, d dedupe.Deduper, id string) bool {
	seen, err := d.SeenAndRecord(ctx, id)
	So(err, ShouldBeNil)
	return seen
}

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When recording step ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := record(ctx, d, "sess-1:0")

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already recorded", func() {
				record(ctx, d, "sess-1:0")
				seen := record(ctx, d, "sess-1:0")

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And consecutive steps of one session are recorded", func() {
				for step := 0; step < 5; step++ {
					So(record(ctx, d, fmt.Sprintf("sess-1:%d", step)), ShouldBeFalse)
				}

				Convey("Then each step should be tracked on its own", func() {
					So(d.Size(), ShouldEqual, 5)
					So(record(ctx, d, "sess-1:3"), ShouldBeTrue)
					So(record(ctx, d, "sess-2:3"), ShouldBeFalse)
				})
			})
		})

		Convey("When unrecording ids", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10))
			for _, id := range []string{"a", "b", "c"} {
				record(ctx, d, id)
			}

			Convey("And the id is in the middle", func() {
				d.Unrecord(ctx, "b")

				Convey("Then only that id should be released", func() {
					So(d.Size(), ShouldEqual, 2)
					So(record(ctx, d, "a"), ShouldBeTrue)
					So(record(ctx, d, "c"), ShouldBeTrue)
					So(record(ctx, d, "b"), ShouldBeFalse)
				})
			})

			Convey("And the id is unknown", func() {
				d.Unrecord(ctx, "zzz")

				Convey("Then nothing should change", func() {
					So(d.Size(), ShouldEqual, 3)
					So(d.Evicted(), ShouldEqual, 0)
				})
			})

			Convey("And every id is released", func() {
				d.Unrecord(ctx, "c")
				d.Unrecord(ctx, "a")
				d.Unrecord(ctx, "b")

				Convey("Then the set should be empty and reusable", func() {
					So(d.Size(), ShouldEqual, 0)
					So(record(ctx, d, "a"), ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When the size bound is reached", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, id := range []string{"a", "b", "c"} {
				So(record(ctx, d, id), ShouldBeFalse)
			}
			seen, err := d.SeenAndRecord(ctx, "d")

			Convey("Then the new id should be refused and every held id kept", func() {
				So(seen, ShouldBeFalse)
				So(errors.Is(err, dedupe.ErrFull), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 3)
				So(d.Evicted(), ShouldEqual, 0)
				So(record(ctx, d, "a"), ShouldBeTrue)
				So(record(ctx, d, "b"), ShouldBeTrue)
				So(record(ctx, d, "c"), ShouldBeTrue)
			})

			Convey("Then the refused id should stay unrecorded", func() {
				d.Unrecord(ctx, "c")
				So(record(ctx, d, "d"), ShouldBeFalse)
				So(record(ctx, d, "d"), ShouldBeTrue)
			})
		})

		Convey("When the size bound is reached with a ttl", func() {
			var clock atomic.Int64
			clock.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
			now := func() time.Time { return time.Unix(0, clock.Load()) }

			d := dedupe.NewInMemoryDeduper(
				dedupe.WithMaxSize(2),
				dedupe.WithTTL(time.Hour),
				dedupe.WithClock(now),
			)
			So(record(ctx, d, "a"), ShouldBeFalse)
			So(record(ctx, d, "b"), ShouldBeFalse)

			Convey("And the held ids are still live", func() {
				_, err := d.SeenAndRecord(ctx, "c")

				Convey("Then the set should refuse rather than forget", func() {
					So(errors.Is(err, dedupe.ErrFull), ShouldBeTrue)
					So(record(ctx, d, "a"), ShouldBeTrue)
				})
			})

			Convey("And the held ids have expired", func() {
				clock.Add(int64(time.Hour))

				Convey("Then their slots should be reused", func() {
					So(record(ctx, d, "c"), ShouldBeFalse)
					So(d.Evicted(), ShouldEqual, 2)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When the set is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const n = 1000
			for i := 0; i < n; i++ {
				So(record(ctx, d, fmt.Sprintf("id-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing should be evicted", func() {
				So(d.Size(), ShouldEqual, n)
				So(d.Evicted(), ShouldEqual, 0)
				So(record(ctx, d, "id-0"), ShouldBeTrue)
			})
		})

		Convey("When a ttl is configured", func() {
			var clock atomic.Int64
			clock.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
			now := func() time.Time { return time.Unix(0, clock.Load()) }
			advance := func(d time.Duration) { clock.Add(int64(d)) }

			d := dedupe.NewInMemoryDeduper(
				dedupe.WithTTL(time.Minute),
				dedupe.WithClock(now),
			)
			record(ctx, d, "old")
			advance(30 * time.Second)
			record(ctx, d, "young")

			Convey("And the oldest id outlives the ttl", func() {
				advance(31 * time.Second)

				Convey("Then it should be forgotten while younger ids stay", func() {
					So(record(ctx, d, "young"), ShouldBeTrue)
					So(d.Evicted(), ShouldEqual, 1)
					So(record(ctx, d, "old"), ShouldBeFalse)
				})
			})

			Convey("And the ids are still within the ttl", func() {
				advance(10 * time.Second)

				Convey("Then both should be remembered", func() {
					So(record(ctx, d, "old"), ShouldBeTrue)
					So(record(ctx, d, "young"), ShouldBeTrue)
					So(d.Size(), ShouldEqual, 2)
				})
			})
		})

		Convey("When using nil context", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should not panic", func() {
				So(func() { _, _ = d.SeenAndRecord(nil, "event-1") }, ShouldNotPanic)
				So(func() { d.Unrecord(nil, "event-1") }, ShouldNotPanic)
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by many goroutines", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10000))
		const workers = 16

		Convey("When every goroutine races to claim the same step", func() {
			var wg sync.WaitGroup
			var winners atomic.Int64
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if seen, err := d.SeenAndRecord(ctx, "sess-1:4"); err == nil && !seen {
						winners.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one should win", func() {
				So(winners.Load(), ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When goroutines record and release distinct ids", func() {
			const perWorker = 100
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						id := fmt.Sprintf("sess-%d:%d", w, j)
						_, _ = d.SeenAndRecord(ctx, id)
						if j%2 == 0 {
							d.Unrecord(ctx, id)
						}
					}
				}(i)
			}
			wg.Wait()

			Convey("Then only the kept half should remain", func() {
				So(d.Size(), ShouldEqual, workers*perWorker/2)
			})
		})
	})
}
