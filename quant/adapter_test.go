package quant

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ipomdp/model"
	"ipomdp/simple"
)

func TestTranslateMembershipPropagatesToGadget(t *testing.T) {
	Convey("Given the corridor scenario binarized", t, func() {
		ip, remain, target := model.FullyObservableCorridor()
		bin := simple.Binarize(ip, nil, false, rand.New(rand.NewSource(1)))
		simple.RemapTargets(bin)

		Convey("Every simple state in state 1's gadget is marked target", func() {
			sp := Translate(bin, remain, target, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, false)
			lo, hi := 0, 0
			for s, owner := range bin.Owner {
				if owner == 1 {
					if lo == 0 && hi == 0 {
						lo = s
					}
					hi = s + 1
				}
			}
			for s := lo; s < hi; s++ {
				So(sp.Target.Has(s), ShouldBeTrue)
			}
		})
	})
}

func TestTranslateSenseAndSign(t *testing.T) {
	Convey("Given a maximising controller", t, func() {
		ip, remain, target := model.FullyObservableCorridor()
		bin := simple.Binarize(ip, nil, false, nil)
		simple.RemapTargets(bin)

		sp := Translate(bin, remain, target, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Max}, false)
		Convey("Sense is >= and sign is +1, quantifier is exist", func() {
			So(sp.Sense, ShouldEqual, GE)
			So(sp.Sign, ShouldEqual, 1.0)
			So(sp.Quantifier, ShouldEqual, Exist)
			So(sp.GoalValue, ShouldEqual, 1.0)
		})
	})

	Convey("Given a minimising controller against a maximising adversary", t, func() {
		ip, remain, target := model.FullyObservableCorridor()
		bin := simple.Binarize(ip, nil, false, nil)
		simple.RemapTargets(bin)

		sp := Translate(bin, remain, target, model.MinMaxSpec{Controller: model.Min, Uncertainty: model.Max}, true)
		Convey("Sense is <=, sign -1, quantifier forall, goal 0", func() {
			So(sp.Sense, ShouldEqual, LE)
			So(sp.Sign, ShouldEqual, -1.0)
			So(sp.Quantifier, ShouldEqual, Forall)
			So(sp.GoalValue, ShouldEqual, 0.0)
		})
	})
}

func TestInterior(t *testing.T) {
	Convey("Given the zero-remain scenario", t, func() {
		ip, remain, target := model.ZeroRemain()
		bin := simple.Binarize(ip, nil, false, nil)
		simple.RemapTargets(bin)
		sp := Translate(bin, remain, target, model.MinMaxSpec{Controller: model.Max, Uncertainty: model.Min}, false)

		Convey("No state is interior: everything is either target or bad", func() {
			for s := range bin.Simple.States {
				So(sp.Interior(s), ShouldBeFalse)
			}
		})
	})
}
