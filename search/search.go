// Package search implements the two outer-search strategies of C9 that
// wrap the local SCP loop: multi-start restart (used for probability
// specs) and generational pruning (used for reward specs).
package search

import (
	"context"
	"math/rand"
	"sort"

	channerics "github.com/niceyeti/channerics/channels"

	"ipomdp/config"
	"ipomdp/idtmc"
	"ipomdp/lp"
	"ipomdp/model"
	"ipomdp/quant"
	"ipomdp/simple"
	"ipomdp/solution"
	"ipomdp/telemetry"
)

// Population sizes and the generational round length, per §4.7;
// config.Default() carries the same values. MultiStart and Generational
// take population (and pruneIterations) as arguments and do not read
// these constants.
const (
	MultiStartPopulation   = 10
	GenerationalPopulation = 32
	PruneIterations        = 4
)

// newStartingPoint binarizes the product IPOMDP with a freshly shuffled
// choice-order permutation (so every outer-search member explores a
// different gadget layout) and builds the SolutionPoint for it.
func newStartingPoint(
	prod *model.IPOMDP,
	prodRewards *model.RewardStructure,
	prodRemain, prodTarget model.BitSet,
	mm model.MinMaxSpec,
	isReward bool,
	rng *rand.Rand,
	lpOracle lp.Oracle,
	reachOracle idtmc.ReachOracle,
	cfg *config.EngineConfig,
	hub *telemetry.Hub,
	id int,
) (*solution.SolutionPoint, *simple.Result) {
	bin := simple.Binarize(prod, prodRewards, true, rng)
	simple.RemapTargets(bin)
	sp := quant.Translate(bin, prodRemain, prodTarget, mm, isReward)
	point := solution.NewWithConfig(bin.Simple, sp, lpOracle, reachOracle, mm.Controller, cfg)
	if hub != nil {
		point.WithTelemetry(hub, id)
	}
	return point, bin
}

// MultiStart runs population independent SolutionPoints, each with its
// own randomised gadget permutation, drives each to completion, and
// returns the best main[s0] under the controller's direction. hub may
// be nil; when non-nil, each point reports progress under its
// population index. Each point's SCP driver is configured from
// config.Default(); use MultiStartWithConfig to override it.
func MultiStart(
	prod *model.IPOMDP,
	prodRewards *model.RewardStructure,
	prodRemain, prodTarget model.BitSet,
	mm model.MinMaxSpec,
	isReward bool,
	rng *rand.Rand,
	population int,
	hub *telemetry.Hub,
) float64 {
	return MultiStartWithConfig(prod, prodRewards, prodRemain, prodTarget, mm, isReward, rng, population, config.Default(), hub)
}

// MultiStartWithConfig is MultiStart, but drives every SolutionPoint's
// trust-region/iteration/penalty constants from cfg.
func MultiStartWithConfig(
	prod *model.IPOMDP,
	prodRewards *model.RewardStructure,
	prodRemain, prodTarget model.BitSet,
	mm model.MinMaxSpec,
	isReward bool,
	rng *rand.Rand,
	population int,
	cfg *config.EngineConfig,
	hub *telemetry.Hub,
) float64 {
	lpOracle := lp.NewDenseSimplex()
	reachOracle := idtmc.NewValueIterationOracleWithCaps(cfg.ProbIterationCap, cfg.RewardIterationCap)

	best := 0.0
	haveBest := false
	for i := 0; i < population; i++ {
		point, _ := newStartingPoint(prod, prodRewards, prodRemain, prodTarget, mm, isReward, rng, lpOracle, reachOracle, cfg, hub, i)
		point.Converge()
		if point.Failed() {
			continue
		}
		v := point.Value()
		if !haveBest || mm.Sign()*v > mm.Sign()*best {
			best = v
			haveBest = true
		}
	}
	return best
}

// concurrentResult is one population member's final outcome, carried on
// its own channel so it can be fanned into a single stream.
type concurrentResult struct {
	value  float64
	failed bool
}

// runConcurrentPoint drives point to convergence on its own goroutine
// and reports the single outcome on the channel it returns, the same
// one-result-then-close shape agent_worker gives its episode channel.
func runConcurrentPoint(done <-chan struct{}, point *solution.SolutionPoint) <-chan concurrentResult {
	out := make(chan concurrentResult, 1)
	go func() {
		defer close(out)
		point.Converge()
		r := concurrentResult{value: point.Value(), failed: point.Failed()}
		select {
		case out <- r:
		case <-done:
		}
	}()
	return out
}

// MultiStartConcurrent is MultiStart's opt-in concurrent-preview mode:
// every population member's SolutionPoint runs to convergence on its own
// goroutine instead of in a sequential loop, and those per-point result
// channels are fanned into a single stream with channerics.Merge and
// drained with channerics.OrDone, exactly as
// tabular/reinforcement/learning.go merges its per-agent episode
// channels into one estimator feed. The SCP loop inside each
// SolutionPoint stays synchronous and single-goroutine; only the outer
// population is run in parallel. Cancelling ctx stops the wait early;
// any member still running at that point contributes no result.
func MultiStartConcurrent(
	ctx context.Context,
	prod *model.IPOMDP,
	prodRewards *model.RewardStructure,
	prodRemain, prodTarget model.BitSet,
	mm model.MinMaxSpec,
	isReward bool,
	rng *rand.Rand,
	population int,
	cfg *config.EngineConfig,
	hub *telemetry.Hub,
) float64 {
	lpOracle := lp.NewDenseSimplex()
	reachOracle := idtmc.NewValueIterationOracleWithCaps(cfg.ProbIterationCap, cfg.RewardIterationCap)
	done := ctx.Done()

	workers := make([]<-chan concurrentResult, 0, population)
	for i := 0; i < population; i++ {
		point, _ := newStartingPoint(prod, prodRewards, prodRemain, prodTarget, mm, isReward, rng, lpOracle, reachOracle, cfg, hub, i)
		workers = append(workers, runConcurrentPoint(done, point))
	}

	best := 0.0
	haveBest := false
	for r := range channerics.OrDone(done, channerics.Merge(done, workers...)) {
		if r.failed {
			continue
		}
		if !haveBest || mm.Sign()*r.value > mm.Sign()*best {
			best = r.value
			haveBest = true
		}
	}
	return best
}

// Generational runs population SolutionPoints, advancing every surviving
// point pruneIterations SCP steps per round, then discarding the worse
// half (ranked by sign*objective) each round until one point remains;
// that survivor is driven to full convergence and its value returned.
// hub may be nil; when non-nil, each point reports progress under its
// original population index, even after others are pruned. Each
// point's SCP driver is configured from config.Default(); use
// GenerationalWithConfig to override it.
func Generational(
	prod *model.IPOMDP,
	prodRewards *model.RewardStructure,
	prodRemain, prodTarget model.BitSet,
	mm model.MinMaxSpec,
	isReward bool,
	rng *rand.Rand,
	population int,
	pruneIterations int,
	hub *telemetry.Hub,
) float64 {
	return GenerationalWithConfig(prod, prodRewards, prodRemain, prodTarget, mm, isReward, rng, population, pruneIterations, config.Default(), hub)
}

// GenerationalWithConfig is Generational, but drives every SolutionPoint's
// trust-region/iteration/penalty constants from cfg.
func GenerationalWithConfig(
	prod *model.IPOMDP,
	prodRewards *model.RewardStructure,
	prodRemain, prodTarget model.BitSet,
	mm model.MinMaxSpec,
	isReward bool,
	rng *rand.Rand,
	population int,
	pruneIterations int,
	cfg *config.EngineConfig,
	hub *telemetry.Hub,
) float64 {
	lpOracle := lp.NewDenseSimplex()
	reachOracle := idtmc.NewValueIterationOracleWithCaps(cfg.ProbIterationCap, cfg.RewardIterationCap)

	points := make([]*solution.SolutionPoint, 0, population)
	for i := 0; i < population; i++ {
		point, _ := newStartingPoint(prod, prodRewards, prodRemain, prodTarget, mm, isReward, rng, lpOracle, reachOracle, cfg, hub, i)
		points = append(points, point)
	}

	for len(points) > 1 {
		for _, p := range points {
			p.Advance(pruneIterations)
		}
		// Sorting ascending by sign*objective puts the worst performers
		// first; discarding that prefix keeps the better-performing
		// half, the principled reading of "discard the worst half" a
		// pruning search needs (see DESIGN.md).
		sort.Slice(points, func(a, b int) bool {
			return points[a].Objective() < points[b].Objective()
		})
		discard := (len(points) + 1) / 2
		if len(points)-discard < 1 {
			discard = len(points) - 1
		}
		points = points[discard:]
	}

	if len(points) == 0 {
		return 0
	}
	points[0].Converge()
	return points[0].Value()
}
