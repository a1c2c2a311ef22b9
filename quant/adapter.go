// Package quant translates a caller's remain/target/min-max request into
// the inequality direction, penalty sign, and adversary quantifier the SCP
// step needs over the simple IPOMDP: the specification adapter, C5.
package quant

import (
	"ipomdp/model"
	"ipomdp/simple"
)

// Quantifier is the adversary's relationship to the controller over an
// uncertain state's interval edges.
type Quantifier int

const (
	// Exist means the adversary is aligned with the controller: it
	// resolves each interval in the same direction the controller is
	// optimising for.
	Exist Quantifier = iota
	// Forall means the adversary is worst-case: it resolves each
	// interval against the controller.
	Forall
)

func (q Quantifier) String() string {
	if q == Exist {
		return "exist"
	}
	return "forall"
}

// Sense is the inequality direction an optimisation constraint uses.
type Sense int

const (
	GE Sense = iota // >=, the maximising controller's direction
	LE              // <=, the minimising controller's direction
)

// Spec is the fully-translated specification over the simple IPOMDP:
// everything C7 (the SCP step) needs to build its linearised program
// without re-deriving any of §4.3's translation rules.
type Spec struct {
	Remain model.BitSet
	Target model.BitSet

	Sense      Sense
	Sign       float64 // +1 maximise, -1 minimise, per model.MinMaxSpec.Sign
	Quantifier Quantifier

	// IsReward is false for a probability specification, true for a
	// reward specification; it governs the goal-state constant (1 vs 0)
	// and the value vector's bracket.
	IsReward bool

	// GoalValue is the value every target state's m[s] is pinned to:
	// 1 for probability specs, 0 for reward specs.
	GoalValue float64

	// Leader maps each simple state's observation to its canonical
	// representative, for the observation-based policy-tie constraint.
	Leader map[int]int
}

// Translate implements §4.3: it maps the product-level remain/target
// bitsets into the simple state space via the gadget table (a product
// state's membership propagates to the state's entire gadget, since the
// binary tree introduced by binarisation has no independent identity of
// its own), and derives Sense/Sign/Quantifier/GoalValue from the
// min/max specification.
func Translate(bin *simple.Result, prodRemain, prodTarget model.BitSet, mm model.MinMaxSpec, isReward bool) *Spec {
	n := len(bin.Simple.States)
	remain := model.NewBitSet(n)
	target := model.NewBitSet(n)

	for simpleIdx, owner := range bin.Owner {
		if prodRemain.Has(owner) {
			remain.Set(simpleIdx)
		}
		if prodTarget.Has(owner) {
			target.Set(simpleIdx)
		}
	}

	sense := LE
	if mm.Controller == model.Max {
		sense = GE
	}

	quantifier := Forall
	if mm.Controller == mm.Uncertainty {
		quantifier = Exist
	}

	goal := 1.0
	if isReward {
		goal = 0.0
	}

	return &Spec{
		Remain:     remain,
		Target:     target,
		Sense:      sense,
		Sign:       mm.Sign(),
		Quantifier: quantifier,
		IsReward:   isReward,
		GoalValue:  goal,
		Leader:     simple.LeaderOf(bin.Simple),
	}
}

// Interior reports whether s needs a Bellman constraint at all: not a
// target state (pinned instead) and still in the remain set (otherwise
// it contributes nothing and is left at zero, matching the "bad" states
// an observation-based controller must avoid per §4.3).
func (sp *Spec) Interior(s int) bool {
	return !sp.Target.Has(s) && sp.Remain.Has(s)
}
