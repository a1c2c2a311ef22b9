package model

// Scenarios reusable across tests and the CLI demo mode, one constructor
// per end-to-end scenario named in the testable-properties section of the
// specification this engine implements.

// FullyObservableCorridor builds scenario 1: a 2-state IMDP {0,1}, target
// {1}. From state 0: action a1 splits [0.4,0.6] to states 1 and 0; a2
// splits [0.3,0.7]; a3 splits [0.2,0.8]. State 1 self-loops with certainty.
func FullyObservableCorridor() (*IPOMDP, BitSet, BitSet) {
	m := &IPOMDP{
		Initial: 0,
		States: []State{
			{
				Obs: 0,
				Choices: []Choice{
					{Edges: []Edge{{Target: 1, Prob: Interval{0.4, 0.6}}, {Target: 0, Prob: Interval{0.4, 0.6}}}},
					{Edges: []Edge{{Target: 1, Prob: Interval{0.3, 0.7}}, {Target: 0, Prob: Interval{0.3, 0.7}}}},
					{Edges: []Edge{{Target: 1, Prob: Interval{0.2, 0.8}}, {Target: 0, Prob: Interval{0.2, 0.8}}}},
				},
			},
			{
				Obs:     1,
				Choices: []Choice{{Edges: []Edge{{Target: 1, Prob: Interval{1, 1}}}}},
			},
		},
	}
	target := NewBitSet(2)
	target.Set(1)
	remain := NewBitSet(2).Complement(2) // everything is allowed to remain
	return m, remain, target
}

// ImdpAsDtmc builds scenario 2: a single non-branching state 0 with edges
// [0.4,0.6] to 1 and [0.4,0.6] to 2 (an IMDP with no real choices, i.e. a
// DTMC with interval edges), then deterministic absorbing moves at 1 and 2.
func ImdpAsDtmc() (*IPOMDP, BitSet, BitSet) {
	m := &IPOMDP{
		Initial: 0,
		States: []State{
			{Obs: 0, Choices: []Choice{{Edges: []Edge{
				{Target: 1, Prob: Interval{0.4, 0.6}},
				{Target: 2, Prob: Interval{0.4, 0.6}},
			}}}},
			{Obs: 1, Choices: []Choice{{Edges: []Edge{{Target: 1, Prob: Interval{1, 1}}}}}},
			{Obs: 2, Choices: []Choice{{Edges: []Edge{{Target: 2, Prob: Interval{1, 1}}}}}},
		},
	}
	target := NewBitSet(3)
	target.Set(1)
	remain := Full(3)
	return m, remain, target
}

// ObservationSharing builds scenario 3: states 0 and 1 with obs(0) ==
// obs(1), each offering two choices, plus an absorbing target state 2, so
// an observation-based policy must assign states 0 and 1 identical
// distributions.
func ObservationSharing() (*IPOMDP, BitSet, BitSet) {
	m := &IPOMDP{
		Initial: 0,
		States: []State{
			{
				Obs: 0,
				Choices: []Choice{
					{Edges: []Edge{{Target: 2, Prob: Interval{0.5, 0.5}}, {Target: 1, Prob: Interval{0.5, 0.5}}}},
					{Edges: []Edge{{Target: 2, Prob: Interval{0.9, 0.9}}, {Target: 0, Prob: Interval{0.1, 0.1}}}},
				},
			},
			{
				Obs: 0,
				Choices: []Choice{
					{Edges: []Edge{{Target: 2, Prob: Interval{0.1, 0.1}}, {Target: 1, Prob: Interval{0.9, 0.9}}}},
					{Edges: []Edge{{Target: 2, Prob: Interval{0.5, 0.5}}, {Target: 1, Prob: Interval{0.5, 0.5}}}},
				},
			},
			{
				Obs:     1,
				Choices: []Choice{{Edges: []Edge{{Target: 2, Prob: Interval{1, 1}}}}},
			},
		},
	}
	target := NewBitSet(3)
	target.Set(2)
	remain := Full(3)
	return m, remain, target
}

// RewardSelfLoop builds scenario 4: a zero-reward self-looping target
// state, and an initial state with a state reward and a self-loop upper
// bound, so that the expected reward has the closed form
// stateReward(0) / (1 - selfLoopUpperBound).
func RewardSelfLoop() (*IPOMDP, *RewardStructure, BitSet) {
	m := &IPOMDP{
		Initial: 0,
		States: []State{
			{Obs: 0, Choices: []Choice{{Edges: []Edge{
				{Target: 0, Prob: Interval{0.3, 0.5}},
				{Target: 1, Prob: Interval{0.5, 0.7}},
			}}}},
			{Obs: 1, Choices: []Choice{{Edges: []Edge{{Target: 1, Prob: Interval{1, 1}}}}}},
		},
	}
	rewards := &RewardStructure{
		StateRewards: []float64{2.0, 0.0},
	}
	target := NewBitSet(2)
	target.Set(1)
	return m, rewards, target
}

// DegenerateIntervals builds scenario 5: every interval collapses to a
// point, so the existential and universal adversary coincide.
func DegenerateIntervals() (*IPOMDP, BitSet, BitSet) {
	m := &IPOMDP{
		Initial: 0,
		States: []State{
			{Obs: 0, Choices: []Choice{
				{Edges: []Edge{{Target: 1, Prob: Interval{0.5, 0.5}}, {Target: 0, Prob: Interval{0.5, 0.5}}}},
			}},
			{Obs: 1, Choices: []Choice{{Edges: []Edge{{Target: 1, Prob: Interval{1, 1}}}}}},
		},
	}
	target := NewBitSet(2)
	target.Set(1)
	remain := Full(2)
	return m, remain, target
}

// ZeroRemain builds scenario 6: a remain set that is empty (everything
// but target is "bad"), so the returned value is 1 iff already at target,
// else 0.
func ZeroRemain() (*IPOMDP, BitSet, BitSet) {
	m := &IPOMDP{
		Initial: 0,
		States: []State{
			{Obs: 0, Choices: []Choice{{Edges: []Edge{{Target: 1, Prob: Interval{0.5, 0.5}}, {Target: 0, Prob: Interval{0.5, 0.5}}}}}},
			{Obs: 1, Choices: []Choice{{Edges: []Edge{{Target: 1, Prob: Interval{1, 1}}}}}},
		},
	}
	target := NewBitSet(2)
	target.Set(1)
	remain := NewBitSet(2) // nobody is allowed to remain except target
	return m, remain, target
}
