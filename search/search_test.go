package search

import (
	"context"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ipomdp/config"
	"ipomdp/fsc"
	"ipomdp/model"
)

func TestMultiStartReturnsWithinProbabilityBounds(t *testing.T) {
	Convey("Given the corridor scenario under Pmax with a small population", t, func() {
		ip, remain, target := model.FullyObservableCorridor()
		prod, _, prodRemain, prodTarget := fsc.Product(ip, nil, remain, target, fsc.New(1))

		v := MultiStart(prod, nil, prodRemain, prodTarget, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, false, rand.New(rand.NewSource(7)), 3, nil)

		Convey("The returned value is a valid probability", func() {
			So(v, ShouldBeGreaterThanOrEqualTo, 0)
			So(v, ShouldBeLessThanOrEqualTo, 1+1e-6)
		})
	})
}

func TestMultiStartConcurrentMatchesSequentialBounds(t *testing.T) {
	Convey("Given the corridor scenario run through the concurrent preview mode", t, func() {
		ip, remain, target := model.FullyObservableCorridor()
		prod, _, prodRemain, prodTarget := fsc.Product(ip, nil, remain, target, fsc.New(1))

		v := MultiStartConcurrent(context.Background(), prod, nil, prodRemain, prodTarget, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, false, rand.New(rand.NewSource(11)), 3, config.Default(), nil)

		Convey("The returned value is a valid probability", func() {
			So(v, ShouldBeGreaterThanOrEqualTo, 0)
			So(v, ShouldBeLessThanOrEqualTo, 1+1e-6)
		})
	})
}

func TestGenerationalPrunesToOneSurvivor(t *testing.T) {
	Convey("Given the reward self-loop scenario with a small population", t, func() {
		ip, rewards, target := model.RewardSelfLoop()
		remain := model.Full(ip.NumStates())
		prod, prodRewards, prodRemain, prodTarget := fsc.Product(ip, rewards, remain, target, fsc.New(2))

		v := Generational(prod, prodRewards, prodRemain, prodTarget, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Max}, true, rand.New(rand.NewSource(9)), 4, 2, nil)

		Convey("The returned value is finite and non-negative", func() {
			So(v, ShouldBeGreaterThanOrEqualTo, 0)
		})
	})
}
