package idtmc

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ipomdp/model"
)

func TestExtremizeLinearMaximizePicksHighestWeight(t *testing.T) {
	Convey("Given three successors with distinct values and an interval simplex", t, func() {
		weight := []float64{10, 1, 1}
		lo := []float64{0, 0, 0}
		hi := []float64{0.6, 1, 1}

		Convey("Maximising pushes mass onto the highest-weight successor first", func() {
			got := extremizeLinear(weight, lo, hi, true)
			So(got, ShouldAlmostEqual, 0.6*10+0.4*1, 1e-9)
		})

		Convey("Minimising pushes mass onto the lowest-weight successors first", func() {
			got := extremizeLinear(weight, lo, hi, false)
			So(got, ShouldAlmostEqual, 1, 1e-9)
		})
	})
}

func TestComputeReachProbsCertainSelfLoop(t *testing.T) {
	Convey("Given a 2-state chain where state 1 self-loops with certainty into target", t, func() {
		chain := &IDTMC{States: []State{
			{Edges: []Edge{{Target: 1, Prob: model.Interval{Lo: 0.4, Hi: 0.6}}, {Target: 0, Prob: model.Interval{Lo: 0.4, Hi: 0.6}}}},
			{Edges: []Edge{{Target: 1, Prob: model.Interval{Lo: 1, Hi: 1}}}},
		}}
		target := model.NewBitSet(2)
		target.Set(1)
		remain := model.Full(2)

		oracle := NewValueIterationOracle()
		v, err := oracle.ComputeReachProbs(chain, remain, target, model.Max)

		Convey("Reach probability at state 0 converges to 1", func() {
			So(err, ShouldBeNil)
			So(v[1], ShouldEqual, 1)
			So(v[0], ShouldAlmostEqual, 1, 1e-4)
		})
	})
}

func TestComputeReachRewardsSelfLoop(t *testing.T) {
	Convey("Given state 0 with a state reward and a self-loop upper bound, target state 1 reward 0", t, func() {
		chain := &IDTMC{States: []State{
			{
				StateReward:      2.0,
				Edges:            []Edge{{Target: 0, Prob: model.Interval{Lo: 0.3, Hi: 0.5}}, {Target: 1, Prob: model.Interval{Lo: 0.5, Hi: 0.7}}},
				TransitionReward: []float64{0, 0},
			},
			{Edges: []Edge{{Target: 1, Prob: model.Interval{Lo: 1, Hi: 1}}}},
		}}
		target := model.NewBitSet(2)
		target.Set(1)

		oracle := NewValueIterationOracle()
		v, err := oracle.ComputeReachRewards(chain, target, model.Max)

		Convey("Value approaches stateReward(0) / (1 - selfLoopUpperBound)", func() {
			So(err, ShouldBeNil)
			So(v[0], ShouldAlmostEqual, 2.0/(1-0.5), 1e-3)
		})
	})
}
