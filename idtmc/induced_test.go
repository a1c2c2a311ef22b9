package idtmc

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ipomdp/lp"
	"ipomdp/model"
	"ipomdp/quant"
	"ipomdp/simple"
)

func TestBuildInducedCollapsesActionStates(t *testing.T) {
	Convey("Given the corridor scenario's binarization with a fixed policy", t, func() {
		ip, _, _ := model.FullyObservableCorridor()
		bin := simple.Binarize(ip, nil, false, rand.New(rand.NewSource(2)))
		simple.RemapTargets(bin)

		policy := make([]float64, 2*len(bin.Simple.States))
		for i, st := range bin.Simple.States {
			if st.Kind == simple.ActionState {
				policy[2*i] = 0.5
				policy[2*i+1] = 0.5
			} else {
				policy[2*i] = 1
			}
		}

		chain := BuildInduced(bin.Simple, policy)

		Convey("Action states now carry point intervals summing to the policy", func() {
			for i, st := range bin.Simple.States {
				if st.Kind != simple.ActionState {
					continue
				}
				cs := chain.States[i]
				So(cs.Edges[0].Prob.Lo, ShouldEqual, cs.Edges[0].Prob.Hi)
				So(cs.Edges[0].Prob.Lo+cs.Edges[1].Prob.Lo, ShouldAlmostEqual, 1, 1e-9)
			}
		})
	})
}

func TestRecoverWitnessesFeasible(t *testing.T) {
	Convey("Given a single uncertain interior state with a consistent target value", t, func() {
		simpleIP := &simple.IPOMDP{
			States: []simple.State{
				{
					Kind:             simple.UncertainState,
					Edges:            []simple.Edge{{Target: 1, Prob: model.Interval{Lo: 0.3, Hi: 0.7}}, {Target: 2, Prob: model.Interval{Lo: 0.3, Hi: 0.7}}},
					TransitionReward: []float64{0, 0},
				},
				{Kind: simple.UncertainState, Edges: []simple.Edge{{Target: 1, Prob: model.Interval{Lo: 1, Hi: 1}}}},
				{Kind: simple.UncertainState, Edges: []simple.Edge{{Target: 2, Prob: model.Interval{Lo: 1, Hi: 1}}}},
			},
		}
		remain := model.Full(3)
		target := model.NewBitSet(3)
		target.Set(2)

		mainValues := []float64{0.5, 0, 1}

		sp := &quant.Spec{Remain: remain, Target: target, Quantifier: quant.Exist}

		Convey("The recovery LP finds a feasible witness summing to 1 within bounds", func() {
			witnesses, err := RecoverWitnesses(simpleIP, mainValues, sp, lp.NewDenseSimplex())
			So(err, ShouldBeNil)
			w, ok := witnesses[0]
			So(ok, ShouldBeTrue)
			sum := w[0] + w[1]
			So(sum, ShouldAlmostEqual, 1, 1e-3)
			So(w[0], ShouldBeBetween, 0.3-1e-6, 0.7+1e-6)
		})
	})
}
