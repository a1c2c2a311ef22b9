package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBitSetComplement(t *testing.T) {
	Convey("Given a remain set over a 4-state space", t, func() {
		remain := NewBitSet(4)
		remain.Set(0)
		remain.Set(2)

		Convey("Complement includes the highest-indexed state", func() {
			bad := remain.Complement(4)
			So(bad.Has(1), ShouldBeTrue)
			So(bad.Has(3), ShouldBeTrue)
			So(bad.Has(0), ShouldBeFalse)
			So(bad.Has(2), ShouldBeFalse)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a well-formed corridor scenario", t, func() {
		m, _, _ := FullyObservableCorridor()

		Convey("Validate reports no error", func() {
			So(m.Validate(), ShouldBeNil)
		})
	})

	Convey("Given a malformed IPOMDP with an out-of-range target", t, func() {
		m := &IPOMDP{
			States: []State{
				{Choices: []Choice{{Edges: []Edge{{Target: 5, Prob: Interval{0, 1}}}}}},
			},
		}

		Convey("Validate reports an error", func() {
			So(m.Validate(), ShouldNotBeNil)
		})
	})
}

func TestDataProvider(t *testing.T) {
	Convey("Given the observation-sharing scenario", t, func() {
		m, _, _ := ObservationSharing()

		Convey("Data-provider accessors match the constructed model", func() {
			So(m.NumStates(), ShouldEqual, 3)
			So(m.FirstInitialState(), ShouldEqual, 0)
			So(m.NumChoices(0), ShouldEqual, 2)
			So(m.Observation(0), ShouldEqual, m.Observation(1))
			So(len(m.Transitions(0, 0)), ShouldEqual, 2)
		})
	})
}
