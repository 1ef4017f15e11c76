package rating_test

import (
	"math/rand"
	"testing"

	"github.com/okian/brewrank/internal/domain/rating"
	"github.com/smartystreets/goconvey/convey"
)

func TestUpdate(t *testing.T) {
	convey.Convey("Given two equally rated beers", t, func() {
		convey.Convey("When A wins", func() {
			a, b := rating.Update(1000, 1000, true)

			convey.Convey("Then A gains 16 and B loses 16", func() {
				convey.So(a, convey.ShouldEqual, 1016)
				convey.So(b, convey.ShouldEqual, 984)
			})
		})

		convey.Convey("When B wins", func() {
			a, b := rating.Update(1200, 1200, false)

			convey.Convey("Then B gains 16 and A loses 16", func() {
				convey.So(a, convey.ShouldEqual, 1184)
				convey.So(b, convey.ShouldEqual, 1216)
			})
		})
	})

	convey.Convey("Given a strong favourite", t, func() {
		convey.Convey("When the favourite wins", func() {
			a, b := rating.Update(1400, 1000, true)

			convey.Convey("Then it gains little", func() {
				convey.So(a, convey.ShouldEqual, 1403)
				convey.So(b, convey.ShouldEqual, 997)
			})
		})

		convey.Convey("When the underdog wins", func() {
			a, b := rating.Update(1400, 1000, false)

			convey.Convey("Then the underdog gains a lot", func() {
				convey.So(a, convey.ShouldEqual, 1371)
				convey.So(b, convey.ShouldEqual, 1029)
			})
		})
	})

	convey.Convey("Given random rating pairs", t, func() {
		r := rand.New(rand.NewSource(7))

		convey.Convey("Then the total changes by at most one point of rounding", func() {
			for i := 0; i < 1000; i++ {
				ra := r.Intn(3000) - 500
				rb := r.Intn(3000) - 500
				na, nb := rating.Update(ra, rb, r.Intn(2) == 0)
				diff := (na + nb) - (ra + rb)
				convey.So(diff, convey.ShouldBeBetweenOrEqual, -1, 1)
			}
		})

		convey.Convey("Then the winner never loses rating", func() {
			for i := 0; i < 1000; i++ {
				ra := r.Intn(3000)
				rb := r.Intn(3000)
				na, nb := rating.Update(ra, rb, true)
				convey.So(na, convey.ShouldBeGreaterThanOrEqualTo, ra)
				convey.So(nb, convey.ShouldBeLessThanOrEqualTo, rb)
			}
		})
	})

	convey.Convey("Given ratings far below zero", t, func() {
		a, b := rating.Update(-400, -400, true)

		convey.Convey("Then no clamping is applied", func() {
			convey.So(a, convey.ShouldEqual, -384)
			convey.So(b, convey.ShouldEqual, -416)
		})
	})
}

func TestExpected(t *testing.T) {
	convey.Convey("Given the expected score function", t, func() {
		convey.Convey("Then equal ratings expect one half", func() {
			convey.So(rating.Expected(1500, 1500), convey.ShouldAlmostEqual, 0.5, 1e-9)
		})

		convey.Convey("Then a 400 point gap expects ten to one", func() {
			convey.So(rating.Expected(1400, 1000), convey.ShouldAlmostEqual, 10.0/11.0, 1e-9)
		})

		convey.Convey("Then both sides sum to one", func() {
			convey.So(rating.Expected(1234, 987)+rating.Expected(987, 1234), convey.ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestMerge(t *testing.T) {
	convey.Convey("Given an existing rating", t, func() {
		convey.So(rating.Merge(1400), convey.ShouldEqual, 1200)
		convey.So(rating.Merge(1000), convey.ShouldEqual, 1000)
		convey.So(rating.Merge(800), convey.ShouldEqual, 900)

		convey.Convey("Then odd sums round half up", func() {
			convey.So(rating.Merge(1001), convey.ShouldEqual, 1001)
			convey.So(rating.Merge(999), convey.ShouldEqual, 1000)
		})
	})
}

func TestRound(t *testing.T) {
	convey.Convey("Given half values", t, func() {
		convey.So(rating.Round(2.5), convey.ShouldEqual, 3)
		convey.So(rating.Round(-2.5), convey.ShouldEqual, -2)
		convey.So(rating.Round(2.49), convey.ShouldEqual, 2)
		convey.So(rating.Round(-2.51), convey.ShouldEqual, -3)
	})
}
