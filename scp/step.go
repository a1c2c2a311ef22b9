// Package scp implements the sequential-convex-programming step (C7):
// building one linearised program around the current (policy, value,
// witness) point and solving it via the LP oracle, then re-evaluating
// the true value vector by running the induced chain through the
// interval-DTMC oracle.
package scp

import (
	"fmt"
	"math"

	"ipomdp/idtmc"
	"ipomdp/lp"
	"ipomdp/model"
	"ipomdp/quant"
	"ipomdp/simple"
)

// policyEps is the invariant's graph-preservation floor: both branch
// probabilities of an action state must stay >= this after optimisation.
const policyEps = 1e-9

// rewardBracket is the unbounded-value clamp a reward specification's
// m[s] is boxed into for the LP, per §3's "bracketed during LP by
// [-10^6, 10^6]".
const rewardBracket = 1e6

// Point is the (policy, value, interval-witness) state a SolutionPoint
// carries between SCP steps.
type Point struct {
	// Policy has length 2*len(States): Policy[2s], Policy[2s+1] are the
	// two branch probabilities of action state s (always 1, 0 for an
	// uncertain state).
	Policy []float64
	// Value is one scalar per simple state.
	Value []float64
	// Witness[s] is the recovered interval-probability assignment for
	// existentially-quantified uncertain state s, reused as ū in the
	// next linearisation.
	Witness map[int][]float64
}

// NewPoint builds a feasible starting point: a uniform policy split at
// every action state, the degenerate π[s,0]=1 at every uncertain state,
// a value vector that is zero except at target states (set to the goal
// value), and a defaultWitness for every existential interior uncertain
// state.
func NewPoint(simpleIP *simple.IPOMDP, sp *quant.Spec) *Point {
	n := len(simpleIP.States)
	p := &Point{
		Policy:  make([]float64, 2*n),
		Value:   make([]float64, n),
		Witness: map[int][]float64{},
	}
	for s, st := range simpleIP.States {
		switch st.Kind {
		case simple.ActionState:
			p.Policy[2*s] = 0.5
			p.Policy[2*s+1] = 0.5
		case simple.UncertainState:
			p.Policy[2*s] = 1
			if sp.Quantifier == quant.Exist && sp.Interior(s) {
				p.Witness[s] = defaultWitness(st.Edges)
			}
		}
		if sp.Target.Has(s) {
			p.Value[s] = sp.GoalValue
		}
	}
	return p
}

// defaultWitness returns a feasible point of the interval simplex
// {x: lo<=x<=hi, sum x = 1}, filling lower bounds first and distributing
// the remaining mass in edge order.
func defaultWitness(edges []simple.Edge) []float64 {
	x := make([]float64, len(edges))
	slack := 1.0
	for i, e := range edges {
		x[i] = e.Prob.Lo
		slack -= e.Prob.Lo
	}
	for i, e := range edges {
		room := e.Prob.Hi - e.Prob.Lo
		give := room
		if give > slack {
			give = slack
		}
		if give < 0 {
			give = 0
		}
		x[i] += give
		slack -= give
	}
	return x
}

// variables collects every LP column this step introduces, keyed by role.
type variables struct {
	vars []lp.Var

	mIdx      []int
	piIdx     [][2]int
	penActIdx map[int]int
	penUncIdx map[int]int
	xIdx      map[int][]int
	dIdx      map[int][]int
}

func (v *variables) add(lo, hi float64) int {
	idx := len(v.vars)
	v.vars = append(v.vars, lp.Var{Lo: lo, Hi: hi})
	return idx
}

// trustBounds applies the multiplicative trust-region box x/T <= x_new <=
// x*T around current, clamped afterward to [domainLo, domainHi]. A
// current value of exactly zero would otherwise freeze the variable at
// zero (0/T = 0*T = 0), so that case falls back to an additive radius
// instead -- this is the one place the multiplicative trust region from
// §4.5 needed a documented tie-break; see DESIGN.md.
func trustBounds(current, trustRegionFactor, domainLo, domainHi float64) (float64, float64) {
	const fallbackRadius = 0.25
	var lo, hi float64
	switch {
	case current > 0:
		lo, hi = current/trustRegionFactor, current*trustRegionFactor
	case current < 0:
		lo, hi = current*trustRegionFactor, current/trustRegionFactor
	default:
		lo, hi = -fallbackRadius, fallbackRadius
	}
	if lo < domainLo {
		lo = domainLo
	}
	if hi > domainHi {
		hi = domainHi
	}
	return lo, hi
}

// Step builds and solves one linearised program around point, then
// re-evaluates the true value vector via the induced-chain oracle on the
// resulting policy. penaltyWeight is W (§4.5's initial 10^4).
func Step(
	simpleIP *simple.IPOMDP,
	sp *quant.Spec,
	point *Point,
	trustRegion float64,
	penaltyWeight float64,
	lpOracle lp.Oracle,
	reachOracle idtmc.ReachOracle,
	controllerDir model.MinMax,
) (*Point, error) {
	n := len(simpleIP.States)
	T := 1 + trustRegion

	valueLo, valueHi := 0.0, 1.0
	if sp.IsReward {
		valueLo, valueHi = -rewardBracket, rewardBracket
	}

	v := &variables{
		piIdx:     make([][2]int, n),
		penActIdx: map[int]int{},
		penUncIdx: map[int]int{},
		xIdx:      map[int][]int{},
		dIdx:      map[int][]int{},
	}
	v.mIdx = make([]int, n)

	for s := 0; s < n; s++ {
		mLo, mHi := trustBounds(point.Value[s], T, valueLo, valueHi)
		if sp.Target.Has(s) {
			mLo, mHi = sp.GoalValue, sp.GoalValue
		}
		v.mIdx[s] = v.add(mLo, mHi)
	}

	for s, st := range simpleIP.States {
		switch st.Kind {
		case simple.ActionState:
			p0Lo, p0Hi := trustBounds(point.Policy[2*s], T, 0, 1)
			p1Lo, p1Hi := trustBounds(point.Policy[2*s+1], T, 0, 1)
			v.piIdx[s][0] = v.add(p0Lo, p0Hi)
			v.piIdx[s][1] = v.add(p1Lo, p1Hi)
			if sp.Interior(s) {
				v.penActIdx[s] = v.add(0, math.Inf(1))
			}
		case simple.UncertainState:
			v.piIdx[s][0] = v.add(1, 1)
			v.piIdx[s][1] = v.add(0, 0)

			if !sp.Interior(s) {
				continue
			}
			if sp.Quantifier == quant.Exist {
				v.penUncIdx[s] = v.add(0, math.Inf(1))
				xs := make([]int, len(st.Edges))
				for i, e := range st.Edges {
					xs[i] = v.add(e.Prob.Lo, e.Prob.Hi)
				}
				v.xIdx[s] = xs
			} else {
				numRows := 2*len(st.Edges) + 2
				ds := make([]int, numRows)
				for i := range ds {
					ds[i] = v.add(0, math.Inf(1))
				}
				v.dIdx[s] = ds
			}
		}
	}

	totalVars := len(v.vars)
	var constraints []lp.Constraint

	newRow := func() []float64 { return make([]float64, totalVars) }

	for s := 0; s < n; s++ {
		if sp.Target.Has(s) {
			row := newRow()
			row[v.mIdx[s]] = 1
			constraints = append(constraints, lp.Constraint{Name: fmt.Sprintf("goal[%d]", s), Coeffs: row, Sense: lp.EQ, RHS: sp.GoalValue})
		}
	}

	lpSense := func() lp.Sense {
		if sp.Sense == quant.GE {
			return lp.GE
		}
		return lp.LE
	}()

	for s, st := range simpleIP.States {
		if st.Kind != simple.ActionState || !sp.Interior(s) {
			continue
		}
		row := newRow()
		row[v.mIdx[s]] = -1
		row[v.penActIdx[s]] = sp.Sign
		rhs := -st.StateReward
		for k := 0; k < 2; k++ {
			succ := st.Edges[k].Target
			piBar := point.Policy[2*s+k]
			mBarSucc := point.Value[succ]
			tr := 0.0
			if k < len(st.TransitionReward) {
				tr = st.TransitionReward[k]
			}
			row[v.mIdx[succ]] += piBar
			row[v.piIdx[s][k]] += mBarSucc + tr
			rhs += piBar * mBarSucc
		}
		constraints = append(constraints, lp.Constraint{Name: fmt.Sprintf("action[%d]", s), Coeffs: row, Sense: lpSense, RHS: rhs})

		eqRow := newRow()
		eqRow[v.piIdx[s][0]] = 1
		eqRow[v.piIdx[s][1]] = 1
		constraints = append(constraints, lp.Constraint{Name: fmt.Sprintf("policy[%d]", s), Coeffs: eqRow, Sense: lp.EQ, RHS: 1})
	}

	for s, st := range simpleIP.States {
		if st.Kind != simple.UncertainState || !sp.Interior(s) {
			continue
		}

		if sp.Quantifier == quant.Exist {
			ubar := point.Witness[s]
			row := newRow()
			row[v.mIdx[s]] = -1
			row[v.penUncIdx[s]] = sp.Sign
			rhs := -st.StateReward
			for i, e := range st.Edges {
				tr := 0.0
				if i < len(st.TransitionReward) {
					tr = st.TransitionReward[i]
				}
				mBarTarget := point.Value[e.Target]
				row[v.xIdx[s][i]] += mBarTarget + tr
				row[v.mIdx[e.Target]] += ubar[i]
				rhs += mBarTarget * ubar[i]
			}
			constraints = append(constraints, lp.Constraint{Name: fmt.Sprintf("uncertain[%d]", s), Coeffs: row, Sense: lpSense, RHS: rhs})

			sumRow := newRow()
			for _, xi := range v.xIdx[s] {
				sumRow[xi] = 1
			}
			constraints = append(constraints, lp.Constraint{Name: fmt.Sprintf("simplex[%d]", s), Coeffs: sumRow, Sense: lp.EQ, RHS: 1})
			continue
		}

		// Universal: dualised interval simplex per §4.5 and §9.
		nEdges := len(st.Edges)
		g := make([]float64, 2*nEdges+2)
		for i, e := range st.Edges {
			g[2*i] = -e.Prob.Lo
			g[2*i+1] = e.Prob.Hi
			tr := 0.0
			if i < len(st.TransitionReward) {
				tr = st.TransitionReward[i]
			}
			feasRow := newRow()
			feasRow[v.mIdx[e.Target]] = 1
			feasRow[v.dIdx[s][2*i]] = 1
			feasRow[v.dIdx[s][2*i+1]] = -1
			feasRow[v.dIdx[s][2*nEdges]] = 1
			feasRow[v.dIdx[s][2*nEdges+1]] = -1
			constraints = append(constraints, lp.Constraint{
				Name:   fmt.Sprintf("dualfeas[%d][%d]", s, i),
				Coeffs: feasRow,
				Sense:  lp.EQ,
				RHS:    -tr,
			})
		}
		g[2*nEdges] = -1
		g[2*nEdges+1] = 1

		row := newRow()
		row[v.mIdx[s]] = -1
		for i, gi := range g {
			row[v.dIdx[s][i]] += gi
		}
		constraints = append(constraints, lp.Constraint{Name: fmt.Sprintf("dual[%d]", s), Coeffs: row, Sense: lpSense, RHS: -st.StateReward})
	}

	leader := sp.Leader
	for s, st := range simpleIP.States {
		l := leader[st.Obs]
		if l == s {
			continue
		}
		for k := 0; k < 2; k++ {
			row := newRow()
			row[v.piIdx[s][k]] = 1
			row[v.piIdx[l][k]] = -1
			constraints = append(constraints, lp.Constraint{Name: fmt.Sprintf("obs[%d][%d]", s, k), Coeffs: row, Sense: lp.EQ, RHS: 0})
		}
	}

	objCoeffs := make([]float64, totalVars)
	objCoeffs[v.mIdx[simpleIP.Initial]] = sp.Sign
	for _, idx := range v.penActIdx {
		objCoeffs[idx] = -penaltyWeight
	}
	for _, idx := range v.penUncIdx {
		objCoeffs[idx] = -penaltyWeight
	}

	problem := &lp.Problem{
		Vars:        v.vars,
		Constraints: constraints,
		Obj:         lp.Objective{Coeffs: objCoeffs, Maximize: true},
	}

	sol, err := lpOracle.Solve(problem)
	if err != nil {
		return nil, fmt.Errorf("scp: lp solve: %w", err)
	}
	if !sol.Feasible {
		return nil, fmt.Errorf("scp: lp infeasible")
	}

	newPolicy := make([]float64, 2*n)
	for s := range simpleIP.States {
		newPolicy[2*s] = clamp01(sol.Values[v.piIdx[s][0]])
		newPolicy[2*s+1] = clamp01(sol.Values[v.piIdx[s][1]])
		if simpleIP.States[s].Kind == simple.ActionState {
			normalizePair(newPolicy[2*s:2*s+2], policyEps)
		}
	}

	chain := idtmc.BuildInduced(simpleIP, newPolicy)
	value, err := idtmc.Evaluate(reachOracle, chain, sp, controllerDir)
	if err != nil {
		return nil, fmt.Errorf("scp: induced-chain evaluation: %w", err)
	}

	newWitness, err := idtmc.RecoverWitnesses(simpleIP, value, sp, lpOracle)
	if err != nil {
		newWitness = map[int][]float64{}
		for s, xs := range v.xIdx {
			w := make([]float64, len(xs))
			for i, xi := range xs {
				w[i] = sol.Values[xi]
			}
			newWitness[s] = w
		}
	}

	return &Point{Policy: newPolicy, Value: value, Witness: newWitness}, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// normalizePair rescales a two-entry probability pair to sum exactly to
// 1 while keeping both entries at least eps, absorbing the LP's
// numerical slack around the graph-preservation invariant.
func normalizePair(p []float64, eps float64) {
	if p[0] < eps {
		p[0] = eps
	}
	if p[1] < eps {
		p[1] = eps
	}
	sum := p[0] + p[1]
	p[0] /= sum
	p[1] /= sum
}
