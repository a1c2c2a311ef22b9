// Package idtmc is the external interval-DTMC reachability collaborator
// (C1) the specification treats as a black box, plus the one concrete
// implementation this standalone module ships so the engine runs without
// a separate model-checker process: a Jacobi-style interval value
// iteration using the order-statistic "extremize" trick for resolving
// the interval simplex at each state (see DESIGN.md for why no example
// repo in this corpus supplies a drop-in substitute).
package idtmc

import (
	"sort"

	"ipomdp/model"
)

// Edge is one outgoing edge of an induced-chain state: a target and its
// interval of probability (a point interval [π,π] for an edge that came
// from a resolved action-state policy entry).
type Edge struct {
	Target int
	Prob   model.Interval
}

// State is one state of the induced interval-DTMC: its outgoing edges,
// the transition reward earned per edge (aligned with Edges, nil for a
// probability specification), and its state reward.
type State struct {
	Edges            []Edge
	TransitionReward []float64
	StateReward      float64
}

// IDTMC is the induced chain C6 hands to the reachability oracle.
type IDTMC struct {
	States []State
}

// ReachOracle is the external collaborator interface C1 names. minMax
// names the direction used to resolve whatever interval uncertainty
// survives in the chain (the adversary's resolved direction, already
// determined by the specification adapter's quantifier translation —
// see quant.Spec and DESIGN.md). Both methods must tolerate
// non-convergence within their iteration budget rather than erroring.
type ReachOracle interface {
	ComputeReachProbs(chain *IDTMC, remain, target model.BitSet, minMax model.MinMax) ([]float64, error)
	ComputeReachRewards(chain *IDTMC, target model.BitSet, minMax model.MinMax) ([]float64, error)
}

// Iteration caps for the two reachability computations, per the engine's
// resource model: reward computation gets the larger budget because
// unbounded-horizon reward chains converge more slowly than bounded
// [0,1] reachability probabilities.
const (
	ProbIterationCap   = 2000
	RewardIterationCap = 5000
)

// ValueIterationOracle is the reference ReachOracle. One built by
// NewValueIterationOracle uses the package's default iteration caps;
// NewValueIterationOracleWithCaps overrides them. The zero value has
// both caps at 0 and runs no iterations.
type ValueIterationOracle struct {
	probIterationCap   int
	rewardIterationCap int
}

// NewValueIterationOracle returns the reference idtmc.ReachOracle with
// the default iteration caps.
func NewValueIterationOracle() *ValueIterationOracle {
	return NewValueIterationOracleWithCaps(ProbIterationCap, RewardIterationCap)
}

// NewValueIterationOracleWithCaps returns the reference idtmc.ReachOracle
// with caller-supplied iteration caps, so an operator's config can bound
// how long value iteration is allowed to chase convergence.
func NewValueIterationOracleWithCaps(probIterationCap, rewardIterationCap int) *ValueIterationOracle {
	return &ValueIterationOracle{probIterationCap: probIterationCap, rewardIterationCap: rewardIterationCap}
}

// ComputeReachProbs implements ReachOracle.
func (o *ValueIterationOracle) ComputeReachProbs(chain *IDTMC, remain, target model.BitSet, minMax model.MinMax) ([]float64, error) {
	n := len(chain.States)
	v := make([]float64, n)
	for s := 0; s < n; s++ {
		if target.Has(s) {
			v[s] = 1
		}
	}

	maximize := minMax == model.Max
	next := make([]float64, n)
	for iter := 0; iter < o.probIterationCap; iter++ {
		copy(next, v)
		changed := false
		for s := 0; s < n; s++ {
			if target.Has(s) || !remain.Has(s) {
				continue
			}
			val := extremizeSuccessorValue(chain.States[s], v, maximize)
			if absDiff(val, next[s]) > 1e-10 {
				changed = true
			}
			next[s] = val
		}
		v, next = next, v
		if !changed {
			break
		}
	}
	return v, nil
}

// ComputeReachRewards implements ReachOracle.
func (o *ValueIterationOracle) ComputeReachRewards(chain *IDTMC, target model.BitSet, minMax model.MinMax) ([]float64, error) {
	n := len(chain.States)
	v := make([]float64, n)

	maximize := minMax == model.Max
	next := make([]float64, n)
	for iter := 0; iter < o.rewardIterationCap; iter++ {
		copy(next, v)
		changed := false
		for s := 0; s < n; s++ {
			if target.Has(s) {
				continue
			}
			st := chain.States[s]
			val := st.StateReward + extremizeSuccessorReward(st, v, maximize)
			if absDiff(val, next[s]) > 1e-10 {
				changed = true
			}
			next[s] = val
		}
		v, next = next, v
		if !changed {
			break
		}
	}
	return v, nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// extremizeSuccessorValue resolves state s's interval simplex to extremise
// Σ x_i·v[target_i].
func extremizeSuccessorValue(s State, v []float64, maximize bool) float64 {
	weights := make([]float64, len(s.Edges))
	lo := make([]float64, len(s.Edges))
	hi := make([]float64, len(s.Edges))
	for i, e := range s.Edges {
		weights[i] = v[e.Target]
		lo[i], hi[i] = e.Prob.Lo, e.Prob.Hi
	}
	return extremizeLinear(weights, lo, hi, maximize)
}

// extremizeSuccessorReward resolves state s's interval simplex to
// extremise Σ x_i·(v[target_i] + transitionReward_i).
func extremizeSuccessorReward(s State, v []float64, maximize bool) float64 {
	weights := make([]float64, len(s.Edges))
	lo := make([]float64, len(s.Edges))
	hi := make([]float64, len(s.Edges))
	for i, e := range s.Edges {
		tr := 0.0
		if i < len(s.TransitionReward) {
			tr = s.TransitionReward[i]
		}
		weights[i] = v[e.Target] + tr
		lo[i], hi[i] = e.Prob.Lo, e.Prob.Hi
	}
	return extremizeLinear(weights, lo, hi, maximize)
}

// extremizeLinear solves max/min Σ weight_i·x_i subject to x_i in
// [lo_i,hi_i] and Σ x_i = 1, via the standard order-statistic greedy
// algorithm for robust MDP value iteration (Nilim & El Ghaoui's
// interval-simplex extremisation): start every x_i at its lower bound,
// then walk successors in priority order (best weight first for a
// maximiser, worst first for a minimiser) pushing each up to its upper
// bound until the remaining slack mass (1 - Σ lo_i) is exhausted.
func extremizeLinear(weight, lo, hi []float64, maximize bool) float64 {
	n := len(weight)
	x := make([]float64, n)
	sumLo := 0.0
	for i := range x {
		x[i] = lo[i]
		sumLo += lo[i]
	}
	slack := 1 - sumLo
	if slack < 0 {
		slack = 0
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if maximize {
			return weight[order[a]] > weight[order[b]]
		}
		return weight[order[a]] < weight[order[b]]
	})

	for _, i := range order {
		room := hi[i] - lo[i]
		if room <= 0 {
			continue
		}
		give := room
		if give > slack {
			give = slack
		}
		x[i] += give
		slack -= give
		if slack <= 0 {
			break
		}
	}

	sum := 0.0
	for i := range x {
		sum += weight[i] * x[i]
	}
	return sum
}
