package solution

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ipomdp/fsc"
	"ipomdp/idtmc"
	"ipomdp/lp"
	"ipomdp/model"
	"ipomdp/quant"
	"ipomdp/simple"
)

func buildFixture() (*simple.IPOMDP, *quant.Spec) {
	ip, remain, target := model.FullyObservableCorridor()
	prod, _, prodRemain, prodTarget := fsc.Product(ip, nil, remain, target, fsc.New(1))
	bin := simple.Binarize(prod, nil, false, nil)
	simple.RemapTargets(bin)
	sp := quant.Translate(bin, prodRemain, prodTarget, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, false)
	return bin.Simple, sp
}

func TestSolutionPointConverges(t *testing.T) {
	Convey("Given a fresh solution point over the corridor scenario", t, func() {
		simpleIP, sp := buildFixture()
		point := New(simpleIP, sp, lp.NewDenseSimplex(), idtmc.NewValueIterationOracle(), model.Max)

		Convey("Converge terminates within the iteration cap", func() {
			steps := 0
			for !point.GetCloserTowardsOptimum() {
				steps++
				if steps > InitialIterationCap+1 {
					break
				}
			}
			So(steps, ShouldBeLessThanOrEqualTo, InitialIterationCap)
		})
	})
}

func TestSolutionPointAdvanceStopsEarlyWhenDone(t *testing.T) {
	Convey("Given a solution point with a trust region already below threshold", t, func() {
		simpleIP, sp := buildFixture()
		point := New(simpleIP, sp, lp.NewDenseSimplex(), idtmc.NewValueIterationOracle(), model.Max)
		point.trustRegion = RegionThreshold / 2

		Convey("Advance(5) reports done immediately without panicking", func() {
			point.Advance(5)
			So(point.trustRegion, ShouldBeLessThanOrEqualTo, RegionThreshold)
		})
	})
}
