package engine

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ipomdp/config"
	"ipomdp/model"
)

func TestComputeReachProbsCorridorMaximizing(t *testing.T) {
	Convey("Given the fully-observable corridor scenario under Pmax", t, func() {
		ip, remain, target := model.FullyObservableCorridor()

		v := ComputeReachProbs(ip, remain, target, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min})

		Convey("Value at the initial state is close to 1 (certain eventual reach)", func() {
			So(v[ip.FirstInitialState()], ShouldBeGreaterThan, 0.9)
		})

		Convey("Every other entry is left at zero", func() {
			for s := range ip.States {
				if s == ip.FirstInitialState() {
					continue
				}
				So(v[s], ShouldEqual, 0)
			}
		})
	})
}

func TestComputeReachProbsZeroRemain(t *testing.T) {
	Convey("Given the zero-remain scenario", t, func() {
		ip, remain, target := model.ZeroRemain()

		v := ComputeReachProbs(ip, remain, target, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min})

		Convey("Value at the initial state is 0 (cannot pass through any intermediate state)", func() {
			So(v[ip.FirstInitialState()], ShouldAlmostEqual, 0, 1e-6)
		})
	})
}

func TestComputeReachProbsConcurrentCorridorMaximizing(t *testing.T) {
	Convey("Given the fully-observable corridor scenario run through the concurrent preview mode", t, func() {
		ip, remain, target := model.FullyObservableCorridor()

		v := ComputeReachProbsConcurrent(context.Background(), ip, remain, target, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, config.Default(), nil)

		Convey("Value at the initial state is close to 1 (certain eventual reach)", func() {
			So(v[ip.FirstInitialState()], ShouldBeGreaterThan, 0.9)
		})
	})
}

func TestComputeUntilProbsAliasesReachProbs(t *testing.T) {
	Convey("Given the corridor scenario", t, func() {
		ip, remain, target := model.FullyObservableCorridor()
		mm := model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}

		a := ComputeUntilProbs(ip, remain, target, mm)
		So(len(a), ShouldEqual, ip.NumStates())
	})
}

func TestComputeReachRewardsSelfLoop(t *testing.T) {
	Convey("Given the reward self-loop scenario", t, func() {
		ip, rewards, target := model.RewardSelfLoop()

		v := ComputeReachRewards(ip, rewards, target, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Max})

		Convey("Expected reward at the initial state approaches stateReward(0)/(1-upperBound)", func() {
			So(v[ip.FirstInitialState()], ShouldAlmostEqual, 2.0/(1-0.5), 1e-3)
		})
	})
}
