package scp

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ipomdp/fsc"
	"ipomdp/idtmc"
	"ipomdp/lp"
	"ipomdp/model"
	"ipomdp/quant"
	"ipomdp/simple"
)

func buildFixture(t *testing.T) (*simple.IPOMDP, *quant.Spec) {
	t.Helper()
	ip, remain, target := model.FullyObservableCorridor()
	prod, _, prodRemain, prodTarget := fsc.Product(ip, nil, remain, target, fsc.New(1))
	bin := simple.Binarize(prod, nil, false, rand.New(rand.NewSource(3)))
	simple.RemapTargets(bin)
	sp := quant.Translate(bin, prodRemain, prodTarget, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, false)
	return bin.Simple, sp
}

func TestStepPreservesPolicyInvariants(t *testing.T) {
	Convey("Given the corridor scenario's simple IPOMDP and a fresh point", t, func() {
		simpleIP, sp := buildFixture(t)
		point := NewPoint(simpleIP, sp)

		Convey("One SCP step returns a policy honouring the graph-preservation invariants", func() {
			next, err := Step(simpleIP, sp, point, 1.5, 1e4, lp.NewDenseSimplex(), idtmc.NewValueIterationOracle(), model.Max)
			So(err, ShouldBeNil)

			for s, st := range simpleIP.States {
				switch st.Kind {
				case simple.ActionState:
					sum := next.Policy[2*s] + next.Policy[2*s+1]
					So(sum, ShouldAlmostEqual, 1, 1e-6)
					So(next.Policy[2*s], ShouldBeGreaterThanOrEqualTo, policyEps-1e-12)
					So(next.Policy[2*s+1], ShouldBeGreaterThanOrEqualTo, policyEps-1e-12)
				case simple.UncertainState:
					So(next.Policy[2*s], ShouldEqual, 1)
				}
			}
		})

		Convey("Target states retain their goal value in the returned value vector", func() {
			next, err := Step(simpleIP, sp, point, 1.5, 1e4, lp.NewDenseSimplex(), idtmc.NewValueIterationOracle(), model.Max)
			So(err, ShouldBeNil)
			for s := range simpleIP.States {
				if sp.Target.Has(s) {
					So(next.Value[s], ShouldAlmostEqual, sp.GoalValue, 1e-6)
				}
			}
		})
	})
}

func TestStepObservationTieHolds(t *testing.T) {
	Convey("Given the observation-sharing scenario's simple IPOMDP", t, func() {
		ip, remain, target := model.ObservationSharing()
		prod, _, prodRemain, prodTarget := fsc.Product(ip, nil, remain, target, fsc.New(1))
		bin := simple.Binarize(prod, nil, false, nil)
		simple.RemapTargets(bin)
		sp := quant.Translate(bin, prodRemain, prodTarget, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, false)
		point := NewPoint(bin.Simple, sp)

		Convey("States sharing an observation end up with identical policy entries", func() {
			next, err := Step(bin.Simple, sp, point, 1.5, 1e4, lp.NewDenseSimplex(), idtmc.NewValueIterationOracle(), model.Max)
			So(err, ShouldBeNil)

			for s, st := range bin.Simple.States {
				l := sp.Leader[st.Obs]
				So(next.Policy[2*s], ShouldAlmostEqual, next.Policy[2*l], 1e-6)
				So(next.Policy[2*s+1], ShouldAlmostEqual, next.Policy[2*l+1], 1e-6)
			}
		})
	})
}
