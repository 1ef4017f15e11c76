package types_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
	types "github.com/okian/brewrank/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromBeer(t *testing.T) {
	Convey("Given a catalog beer without optional attributes", t, func() {
		b := model.Beer{Ref: "beer-1", Name: "Guinness Draught", Brewery: "Guinness", Type: "Stout"}

		Convey("When it is converted and encoded", func() {
			raw, err := json.Marshal(types.FromBeer(b))
			So(err, ShouldBeNil)
			var out map[string]any
			So(json.Unmarshal(raw, &out), ShouldBeNil)

			Convey("Then the id should be exposed as _id and optionals omitted", func() {
				So(out["_id"], ShouldEqual, "beer-1")
				So(out["type"], ShouldEqual, "Stout")
				So(out, ShouldNotContainKey, "abv")
				So(out, ShouldNotContainKey, "ibu")
			})
		})

		Convey("When the beer has an ABV", func() {
			abv := 4.2
			b.ABV = &abv
			out := types.FromBeer(b)

			Convey("Then it should be carried over", func() {
				So(*out.ABV, ShouldEqual, 4.2)
			})
		})
	})
}

func TestFromList(t *testing.T) {
	Convey("Given a list with two entries", t, func() {
		added := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		l := model.List{
			Owner: "user-1",
			Name:  model.DefaultListName,
			Entries: []model.RatedEntry{
				{BeerRef: "a", Rating: 1016, ComparisonCount: 1, AddedAt: added},
				{BeerRef: "b", Rating: 984, ComparisonCount: 1, AddedAt: added},
			},
		}

		Convey("When it is converted", func() {
			out := types.FromList(l)

			Convey("Then entries should keep their order and values", func() {
				So(out.UserID, ShouldEqual, "user-1")
				So(out.Beers, ShouldHaveLength, 2)
				So(out.Beers[0], ShouldResemble, types.ListEntry{BeerID: "a", EloScore: 1016, Comparisons: 1, CreatedAt: added})
				So(out.Beers[1].BeerID, ShouldEqual, "b")
			})
		})

		Convey("When an empty list is encoded", func() {
			raw, _ := json.Marshal(types.FromList(model.List{Owner: "u", Name: "x"}))

			Convey("Then beers should be an empty array, not null", func() {
				So(string(raw), ShouldContainSubstring, `"beers":[]`)
			})
		})
	})
}

func TestPlacementEncoding(t *testing.T) {
	Convey("Given a committed placement", t, func() {
		entry := types.ListEntry{BeerID: "a", EloScore: 1000}
		raw, _ := json.Marshal(types.Placement{State: "committed", Entry: &entry})

		Convey("Then session fields should be omitted", func() {
			So(string(raw), ShouldNotContainSubstring, "session_token")
			So(string(raw), ShouldNotContainSubstring, "prompt")
			So(string(raw), ShouldContainSubstring, `"state":"committed"`)
		})
	})
}
