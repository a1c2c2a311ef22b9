// Package simple reduces a product IPOMDP to a "simple" (binary-branching)
// IPOMDP: the binarisation stage, C4, of the value-computation pipeline.
package simple

import (
	"math/rand"

	"ipomdp/model"
)

// Kind distinguishes the two flavours of simple state.
type Kind int

const (
	// ActionState has exactly two outgoing edges, each labelled with the
	// sentinel interval [-1,1]; the policy chooses between them.
	ActionState Kind = iota
	// UncertainState has >=1 outgoing edges labelled with real intervals;
	// the adversary's domain.
	UncertainState
)

// Edge is one outgoing edge of a simple state. For an ActionState, Prob
// carries the sentinel {-1,1}. For an UncertainState it carries the
// original choice's declared interval.
type Edge struct {
	Target int
	Prob   model.Interval
}

// State is one state of the simple IPOMDP.
type State struct {
	Kind        Kind
	Obs         int
	Edges       []Edge
	StateReward float64
	// TransitionReward[i] is the reward attached to Edges[i], populated
	// only for ActionState gadget interiors per §4.2's transition-reward
	// rule; always zero for UncertainState (the original choice's
	// transition reward was already folded into the action-state edge
	// that commits to it).
	TransitionReward []float64
}

// IPOMDP is the simple (binary-branching) IPOMDP: every state has at most
// two outgoing edges.
type IPOMDP struct {
	States  []State
	Initial int
}

// Result bundles the simple IPOMDP together with the bookkeeping the
// downstream stages (spec adapter, SCP) need: the gadget table mapping
// each product state to the simple state that is its gadget root, the
// owner table mapping every simple state back to the product state whose
// gadget it belongs to, and the creation-order traversal.
type Result struct {
	Simple     *IPOMDP
	Gadget     []int // product state index -> simple root index
	Owner      []int // simple state index -> product state index
	Traversal  []int // simple state indices in creation order
	gadgetSpan [][2]int
}

// Binarize transforms the product IPOMDP into its simple form. shuffle
// controls whether each observation's first-encountered gadget randomises
// its choice order (the "randomised restarts" of §9) or keeps the
// identity order; rng supplies the randomness and may be nil when shuffle
// is false.
func Binarize(prod *model.IPOMDP, prodRewards *model.RewardStructure, shuffle bool, rng *rand.Rand) *Result {
	n := prod.NumStates()

	total := 0
	for s := 0; s < n; s++ {
		total += 2*prod.NumChoices(s) - 1
	}

	res := &Result{
		Simple:     &IPOMDP{States: make([]State, 0, total)},
		Gadget:     make([]int, n),
		Owner:      make([]int, 0, total),
		gadgetSpan: make([][2]int, n),
	}

	permCache := map[int][]int{}

	for s := 0; s < n; s++ {
		numChoices := prod.NumChoices(s)
		obs := prod.Observation(s)

		perm, ok := permCache[obs]
		if !ok {
			perm = identityPerm(numChoices)
			if shuffle && rng != nil {
				rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
			}
			permCache[obs] = perm
		}

		start := len(res.Simple.States)
		root := buildGadget(res, prod, prodRewards, s, numChoices, perm)
		res.Gadget[s] = root
		end := len(res.Simple.States)
		res.gadgetSpan[s] = [2]int{start, end}
	}

	assignObservations(res, prod)

	res.Simple.Initial = res.Gadget[prod.FirstInitialState()]
	return res
}

// identityPerm returns [0, 1, ..., n-1].
func identityPerm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// buildGadget appends the simple states representing product state s's
// choice set (permuted by perm) to res.Simple.States and returns the
// gadget root's index. perm[pos] is the original choice index placed at
// leaf position pos.
func buildGadget(res *Result, prod *model.IPOMDP, rewards *model.RewardStructure, s, numChoices int, perm []int) int {
	add := func(st State) int {
		idx := len(res.Simple.States)
		res.Simple.States = append(res.Simple.States, st)
		res.Owner = append(res.Owner, s)
		res.Traversal = append(res.Traversal, idx)
		return idx
	}

	buildLeaf := func(pos int) int {
		a := perm[pos]
		edges := prod.Transitions(s, a)
		simpleEdges := make([]Edge, len(edges))
		for i, e := range edges {
			simpleEdges[i] = Edge{Target: -1 /* patched below */, Prob: e.Prob}
			_ = i
			simpleEdges[i].Target = e.Target // product-state target; remapped to gadget roots in a second pass
		}
		return add(State{
			Kind:             UncertainState,
			Edges:            simpleEdges,
			TransitionReward: make([]float64, len(simpleEdges)),
		})
	}

	if numChoices == 1 {
		root := buildLeaf(0)
		res.Simple.States[root].StateReward = rewards.StateReward(s)
		return root
	}

	// Reserve n-1 action-state slots up front so each can point at the
	// next action state's index before that state exists.
	actionIdx := make([]int, numChoices-1)
	for i := range actionIdx {
		actionIdx[i] = add(State{Kind: ActionState})
	}

	leafIdx := make([]int, numChoices)
	for pos := 0; pos < numChoices; pos++ {
		leafIdx[pos] = buildLeaf(pos)
	}

	for i := 0; i < numChoices-1; i++ {
		var edges []Edge
		var transRewards []float64
		choiceAtLeaf := perm[i]
		leafReward := rewards.TransitionReward(s, choiceAtLeaf)
		if i < numChoices-2 {
			edges = []Edge{
				{Target: leafIdx[i], Prob: model.Interval{Lo: -1, Hi: 1}},
				{Target: actionIdx[i+1], Prob: model.Interval{Lo: -1, Hi: 1}},
			}
			transRewards = []float64{leafReward, 0}
		} else {
			// Last interior action state: both edges commit to a leaf.
			lastChoice := perm[numChoices-1]
			edges = []Edge{
				{Target: leafIdx[i], Prob: model.Interval{Lo: -1, Hi: 1}},
				{Target: leafIdx[i+1], Prob: model.Interval{Lo: -1, Hi: 1}},
			}
			transRewards = []float64{leafReward, rewards.TransitionReward(s, lastChoice)}
		}
		res.Simple.States[actionIdx[i]].Edges = edges
		res.Simple.States[actionIdx[i]].TransitionReward = transRewards
	}

	root := actionIdx[0]
	res.Simple.States[root].StateReward = rewards.StateReward(s)
	return root
}

// assignObservations walks the traversal in gadget order and assigns
// observation ids per §4.2: the root of each gadget gets a fresh id the
// first time its original observation is seen and reuses that id (and the
// whole cached id sequence) otherwise; interior states of a fresh gadget
// get consecutive ids continuing the running counter.
func assignObservations(res *Result, prod *model.IPOMDP) {
	nextObs := 0
	cache := map[int][]int{}

	for s, span := range res.gadgetSpan {
		obs := prod.Observation(s)
		lo, hi := span[0], span[1]
		size := hi - lo

		if ids, ok := cache[obs]; ok {
			for i := 0; i < size; i++ {
				res.Simple.States[lo+i].Obs = ids[i]
			}
			continue
		}

		ids := make([]int, size)
		for i := 0; i < size; i++ {
			ids[i] = nextObs
			res.Simple.States[lo+i].Obs = nextObs
			nextObs++
		}
		cache[obs] = ids
	}
}

// RemapTargets rewrites every UncertainState edge's Target from a product
// state index to that product state's gadget root, now that every gadget
// root is known. Binarize defers this remap until all gadgets exist
// because a choice's edges may point to a product state built later in
// traversal order.
func RemapTargets(res *Result) {
	for i := range res.Simple.States {
		st := &res.Simple.States[i]
		if st.Kind != UncertainState {
			continue
		}
		for j := range st.Edges {
			st.Edges[j].Target = res.Gadget[st.Edges[j].Target]
		}
	}
}

// LeaderOf returns the canonical representative simple state for an
// observation: the highest-indexed simple state carrying that
// observation. The SCP step ties every state's policy entries to its
// leader's, enforcing the observation-based-policy invariant of §3/§4.5.
func LeaderOf(simpleIP *IPOMDP) map[int]int {
	leader := map[int]int{}
	for i, st := range simpleIP.States {
		if cur, ok := leader[st.Obs]; !ok || i > cur {
			leader[st.Obs] = i
		}
	}
	return leader
}
