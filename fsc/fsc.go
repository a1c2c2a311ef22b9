// Package fsc builds the product of an IPOMDP and a fixed-memory finite
// state controller, the leaf component (C3) of the value-computation
// pipeline.
package fsc

import "ipomdp/model"

// FSC is a fixed-memory finite-state controller. Its outputs are
// degenerate in this design: memory advances deterministically from the
// chosen action's index, not from a separate transition table (see the
// open question in the specification's design notes). MemorySize is its
// only field; Product takes the FSC as its own parameter, so a richer
// table-driven FSC can be substituted without touching Product's signature.
type FSC struct {
	MemorySize int
}

// New returns an FSC with the given fixed memory size.
func New(memorySize int) *FSC {
	return &FSC{MemorySize: memorySize}
}

// Product combines ip (with optional reward structure rs) and the FSC into
// the product IPOMDP of §3/§4.1: states S x {0,...,k-1}, choices
// Ch(s) x {0,...,k-1} with choice index a*k+m' encoding (action, next
// memory) lexicographically, observation obs(s)*k+m, and state/transition
// rewards inherited from the IPOMDP dimension only.
//
// remain and target are bitsets over the *original* IPOMDP's states;
// Product returns the corresponding bitsets over the product's state
// space, where membership depends only on the IPOMDP dimension (every
// memory copy of a remain/target state is itself remain/target).
func Product(
	ip *model.IPOMDP,
	rs *model.RewardStructure,
	remain, target model.BitSet,
	controller *FSC,
) (*model.IPOMDP, *model.RewardStructure, model.BitSet, model.BitSet) {
	k := controller.MemorySize
	n := ip.NumStates()
	numProduct := n * k

	prodStates := make([]model.State, numProduct)
	var prodRewards *model.RewardStructure
	if rs != nil {
		prodRewards = &model.RewardStructure{
			StateRewards:      make([]float64, numProduct),
			TransitionRewards: make([][]float64, numProduct),
		}
	}

	// Build choices first, so that observations (emitted only afterward,
	// per §4.1) never race ahead of the choice sets that justify them.
	for s := 0; s < n; s++ {
		numActions := ip.NumChoices(s)
		for m := 0; m < k; m++ {
			ps := productIndex(s, m, k)
			choices := make([]model.Choice, 0, numActions*k)
			var transRewards []float64
			if prodRewards != nil {
				transRewards = make([]float64, 0, numActions*k)
			}

			for a := 0; a < numActions; a++ {
				edges := ip.Transitions(s, a)
				for mNext := 0; mNext < k; mNext++ {
					prodEdges := make([]model.Edge, len(edges))
					for i, e := range edges {
						prodEdges[i] = model.Edge{
							Target: productIndex(e.Target, mNext, k),
							Prob:   e.Prob,
						}
					}
					choices = append(choices, model.Choice{Edges: prodEdges})
					if prodRewards != nil {
						// Transition reward attaches to the product action,
						// independent of the next memory state m'.
						transRewards = append(transRewards, rs.TransitionReward(s, a))
					}
				}
			}

			prodStates[ps] = model.State{Choices: choices}
			if prodRewards != nil {
				prodRewards.StateRewards[ps] = rs.StateReward(s)
				prodRewards.TransitionRewards[ps] = transRewards
			}
		}
	}

	// Emit observations now that every product state's choice set is fixed.
	for s := 0; s < n; s++ {
		obs := ip.Observation(s)
		for m := 0; m < k; m++ {
			ps := productIndex(s, m, k)
			st := prodStates[ps]
			st.Obs = obs*k + m
			prodStates[ps] = st
		}
	}

	product := &model.IPOMDP{
		States:  prodStates,
		Initial: productIndex(ip.FirstInitialState(), 0, k),
	}

	prodRemain := model.NewBitSet(numProduct)
	prodTarget := model.NewBitSet(numProduct)
	for s := 0; s < n; s++ {
		for m := 0; m < k; m++ {
			ps := productIndex(s, m, k)
			if remain.Has(s) {
				prodRemain.Set(ps)
			}
			if target.Has(s) {
				prodTarget.Set(ps)
			}
		}
	}

	return product, prodRewards, prodRemain, prodTarget
}

func productIndex(s, m, k int) int {
	return s*k + m
}
