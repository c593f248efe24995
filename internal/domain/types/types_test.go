package types_test

import (
	"testing"
	"time"

	"github.com/fintrack/fintrack/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIdentity(t *testing.T) {
	Convey("Given identities", t, func() {
		Convey("Then a zero identity is detected", func() {
			So(types.Identity{}.Zero(), ShouldBeTrue)
			So(types.Identity{ID: "u1"}.Zero(), ShouldBeFalse)
			So(types.Identity{ID: "g1", Anonymous: true}.Zero(), ShouldBeFalse)
		})
	})
}

func TestMonthKeys(t *testing.T) {
	Convey("Given month key helpers", t, func() {
		Convey("Then well-formed keys validate", func() {
			So(types.ValidMonthKey("2024-03"), ShouldBeTrue)
			So(types.ValidMonthKey("1999-12"), ShouldBeTrue)
			So(types.ValidMonthKey("2024-01"), ShouldBeTrue)
		})

		Convey("Then malformed keys are rejected", func() {
			So(types.ValidMonthKey(""), ShouldBeFalse)
			So(types.ValidMonthKey("2024-13"), ShouldBeFalse)
			So(types.ValidMonthKey("2024-00"), ShouldBeFalse)
			So(types.ValidMonthKey("2024-3"), ShouldBeFalse)
			So(types.ValidMonthKey("24-03"), ShouldBeFalse)
			So(types.ValidMonthKey("2024/03"), ShouldBeFalse)
			So(types.ValidMonthKey("2024-03-01"), ShouldBeFalse)
		})

		Convey("Then MonthKey formats a time", func() {
			ts := time.Date(2024, time.March, 17, 10, 0, 0, 0, time.UTC)
			So(types.MonthKey(ts), ShouldEqual, "2024-03")
		})

		Convey("Then lexicographic order is chronological", func() {
			So("2023-12" < "2024-01", ShouldBeTrue)
			So("2024-09" < "2024-10", ShouldBeTrue)
		})
	})
}
