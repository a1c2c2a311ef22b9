package idtmc

import (
	"fmt"

	"ipomdp/lp"
	"ipomdp/model"
	"ipomdp/quant"
	"ipomdp/simple"
)

// BuildInduced fixes the simple IPOMDP's policy and produces the
// interval-DTMC that policy induces, per §4.4: action states collapse
// their two sentinel edges to point intervals [π,π]; uncertain states
// keep their original edges untouched. policy has length
// 2*len(simpleIP.States), policy[2s] / policy[2s+1] holding the two
// branch probabilities for an action state (unused for uncertain states,
// whose single real choice is represented directly by its edges).
func BuildInduced(simpleIP *simple.IPOMDP, policy []float64) *IDTMC {
	chain := &IDTMC{States: make([]State, len(simpleIP.States))}
	for i, st := range simpleIP.States {
		switch st.Kind {
		case simple.ActionState:
			edges := make([]Edge, len(st.Edges))
			for j, e := range st.Edges {
				p := policy[2*i+j]
				edges[j] = Edge{Target: e.Target, Prob: model.Interval{Lo: p, Hi: p}}
			}
			chain.States[i] = State{
				Edges:            edges,
				TransitionReward: append([]float64(nil), st.TransitionReward...),
				StateReward:      st.StateReward,
			}
		case simple.UncertainState:
			edges := make([]Edge, len(st.Edges))
			for j, e := range st.Edges {
				edges[j] = Edge{Target: e.Target, Prob: e.Prob}
			}
			chain.States[i] = State{
				Edges:            edges,
				TransitionReward: append([]float64(nil), st.TransitionReward...),
				StateReward:      st.StateReward,
			}
		}
	}
	return chain
}

// Evaluate runs the induced chain through the oracle, dispatching to
// ComputeReachProbs or ComputeReachRewards depending on the translated
// specification, and resolving the residual interval uncertainty in the
// direction the quantifier translation settled on: the controller's own
// direction under Exist (the adversary cooperates), the opposite
// direction under Forall (the adversary is worst-case).
func Evaluate(oracle ReachOracle, chain *IDTMC, sp *quant.Spec, controllerDir model.MinMax) ([]float64, error) {
	adversaryDir := controllerDir
	if sp.Quantifier == quant.Forall {
		adversaryDir = opposite(controllerDir)
	}
	if sp.IsReward {
		return oracle.ComputeReachRewards(chain, sp.Target, adversaryDir)
	}
	return oracle.ComputeReachProbs(chain, sp.Remain, sp.Target, adversaryDir)
}

func opposite(d model.MinMax) model.MinMax {
	if d == model.Min {
		return model.Max
	}
	return model.Min
}

// initialWitnessEpsilon and maxWitnessDoublings bound the interval-witness
// recovery LP's relaxation bracket per §4.4: the two target equalities
// are relaxed to a +/-eps bracket, doubled on infeasibility, which always
// terminates because a sufficiently loose eps makes both equalities
// vacuous.
const (
	initialWitnessEpsilon = 1e-6
	maxWitnessDoublings   = 20
)

// RecoverWitnesses solves, for every uncertain interior state under an
// existential quantifier, the small LP of §4.4 that recovers one
// feasible interval-probability assignment consistent with the current
// value vector, supplying the bilinear linearisation constants the next
// SCP iteration needs.
func RecoverWitnesses(simpleIP *simple.IPOMDP, mainValues []float64, sp *quant.Spec, oracle lp.Oracle) (map[int][]float64, error) {
	witnesses := map[int][]float64{}

	for s, st := range simpleIP.States {
		if st.Kind != simple.UncertainState {
			continue
		}
		if sp.Quantifier != quant.Exist || !sp.Interior(s) {
			continue
		}

		n := len(st.Edges)
		target := mainValues[s] - st.StateReward

		eps := initialWitnessEpsilon
		var sol *lp.Solution
		for attempt := 0; attempt < maxWitnessDoublings; attempt++ {
			vars := make([]lp.Var, n)
			for i, e := range st.Edges {
				vars[i] = lp.Var{Lo: e.Prob.Lo, Hi: e.Prob.Hi}
			}

			sumCoeffs := make([]float64, n)
			weightCoeffs := make([]float64, n)
			for i, e := range st.Edges {
				sumCoeffs[i] = 1
				tr := 0.0
				if i < len(st.TransitionReward) {
					tr = st.TransitionReward[i]
				}
				weightCoeffs[i] = mainValues[e.Target] + tr
			}

			p := &lp.Problem{
				Vars: vars,
				Constraints: []lp.Constraint{
					{Coeffs: sumCoeffs, Sense: lp.LE, RHS: 1 + eps},
					{Coeffs: sumCoeffs, Sense: lp.GE, RHS: 1 - eps},
					{Coeffs: weightCoeffs, Sense: lp.LE, RHS: target + eps},
					{Coeffs: weightCoeffs, Sense: lp.GE, RHS: target - eps},
				},
				Obj: lp.Objective{Coeffs: sumCoeffs, Maximize: true},
			}

			var err error
			sol, err = oracle.Solve(p)
			if err != nil {
				return nil, fmt.Errorf("idtmc: witness recovery for state %d: %w", s, err)
			}
			if sol.Feasible {
				break
			}
			eps *= 2
		}
		if sol == nil || !sol.Feasible {
			return nil, fmt.Errorf("idtmc: witness recovery for state %d never became feasible", s)
		}
		witnesses[s] = sol.Values
	}

	return witnesses, nil
}
