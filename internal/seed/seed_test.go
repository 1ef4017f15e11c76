package seed_test

import (
	"context"
	"testing"

	"github.com/okian/brewrank/internal/adapters/repository"
	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/seed"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given an empty catalog", t, func() {
		ctx := context.Background()
		c := repository.NewMemoryCatalog()

		Convey("When the sample beers are seeded", func() {
			res, err := seed.Run(ctx, c, seed.SampleBeers())

			Convey("Then every sample should be inserted", func() {
				So(err, ShouldBeNil)
				So(res.Inserted, ShouldEqual, 5)
				So(res.Skipped, ShouldBeFalse)
				n, _ := c.CountBeers(ctx)
				So(n, ShouldEqual, 5)
			})

			Convey("And seeding runs again", func() {
				again, err := seed.Run(ctx, c, seed.SampleBeers())

				Convey("Then nothing should be inserted twice", func() {
					So(err, ShouldBeNil)
					So(again.Skipped, ShouldBeTrue)
					So(again.Existing, ShouldEqual, 5)
					n, _ := c.CountBeers(ctx)
					So(n, ShouldEqual, 5)
				})
			})
		})

		Convey("When the input repeats a beer", func() {
			beers := append(seed.SampleBeers(), model.NewBeer{Name: "guinness draught", Brewery: "GUINNESS", Type: "Stout"})
			res, err := seed.Run(ctx, c, beers)

			Convey("Then the duplicate should be skipped", func() {
				So(err, ShouldBeNil)
				So(res.Inserted, ShouldEqual, 5)
			})
		})
	})
}
