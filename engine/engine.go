// Package engine is the top-level entry point: the three caller-facing
// operations of §6, wiring the product builder through binarisation,
// the specification adapter, and the appropriate outer search strategy.
package engine

import (
	"context"
	"math/rand"
	"time"

	"ipomdp/config"
	"ipomdp/fsc"
	"ipomdp/model"
	"ipomdp/search"
	"ipomdp/telemetry"
)

// ComputeReachProbs computes the worst/best-case reaching probability to
// target from ip's initial state, for an observation-based controller
// with one memory state, under mm. remain bounds which states the
// controller is allowed to pass through on the way to target. Runs
// with config.Default(); see ComputeReachProbsWithConfig to override.
func ComputeReachProbs(ip *model.IPOMDP, remain, target model.BitSet, mm model.MinMaxSpec) []float64 {
	return ComputeReachProbsWithConfig(ip, remain, target, mm, config.Default(), nil)
}

// ComputeUntilProbs is an alias for ComputeReachProbs: "Pr[remain U target]"
// and plain reachability share the same engine entry point, since remain
// already captures the "until" constraint.
func ComputeUntilProbs(ip *model.IPOMDP, remain, target model.BitSet, mm model.MinMaxSpec) []float64 {
	return ComputeReachProbs(ip, remain, target, mm)
}

// ComputeReachProbsWithTelemetry is ComputeReachProbs with a telemetry
// hub attached to every outer-search member, for callers driving a live
// dashboard (see package dashboard).
func ComputeReachProbsWithTelemetry(ip *model.IPOMDP, remain, target model.BitSet, mm model.MinMaxSpec, hub *telemetry.Hub) []float64 {
	return ComputeReachProbsWithConfig(ip, remain, target, mm, config.Default(), hub)
}

// ComputeReachProbsWithConfig is ComputeReachProbs, reading the
// multi-start population and every SCP driver constant from cfg rather
// than the package defaults. hub may be nil.
func ComputeReachProbsWithConfig(ip *model.IPOMDP, remain, target model.BitSet, mm model.MinMaxSpec, cfg *config.EngineConfig, hub *telemetry.Hub) []float64 {
	prod, _, prodRemain, prodTarget := fsc.Product(ip, nil, remain, target, fsc.New(1))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	v := search.MultiStartWithConfig(prod, nil, prodRemain, prodTarget, mm, false, rng, cfg.MultiStartPopulation, cfg, hub)
	return resultVector(ip, v)
}

// ComputeReachProbsConcurrent is ComputeReachProbs' opt-in concurrent
// preview mode: every multi-start population member runs to convergence
// on its own goroutine instead of sequentially, useful for watching all
// of a large population's dashboard rows converge side by side rather
// than one at a time. The SCP core stays synchronous per point; only the
// outer population fans out. Cancelling ctx abandons members still in
// flight. hub may be nil.
func ComputeReachProbsConcurrent(ctx context.Context, ip *model.IPOMDP, remain, target model.BitSet, mm model.MinMaxSpec, cfg *config.EngineConfig, hub *telemetry.Hub) []float64 {
	prod, _, prodRemain, prodTarget := fsc.Product(ip, nil, remain, target, fsc.New(1))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	v := search.MultiStartConcurrent(ctx, prod, nil, prodRemain, prodTarget, mm, false, rng, cfg.MultiStartPopulation, cfg, hub)
	return resultVector(ip, v)
}

// ComputeReachRewards computes the worst/best-case expected cumulative
// reward to reach target from ip's initial state, for an
// observation-based controller with two memory states, under mm. Every
// non-target state is a legal intermediate (remain = complement(empty)).
// Runs with config.Default(); see ComputeReachRewardsWithConfig to
// override.
func ComputeReachRewards(ip *model.IPOMDP, rewards *model.RewardStructure, target model.BitSet, mm model.MinMaxSpec) []float64 {
	return ComputeReachRewardsWithConfig(ip, rewards, target, mm, config.Default(), nil)
}

// ComputeReachRewardsWithTelemetry is ComputeReachRewards with a
// telemetry hub attached to every outer-search member.
func ComputeReachRewardsWithTelemetry(ip *model.IPOMDP, rewards *model.RewardStructure, target model.BitSet, mm model.MinMaxSpec, hub *telemetry.Hub) []float64 {
	return ComputeReachRewardsWithConfig(ip, rewards, target, mm, config.Default(), hub)
}

// ComputeReachRewardsWithConfig is ComputeReachRewards, reading the
// generational population/prune length and every SCP driver constant
// from cfg rather than the package defaults. hub may be nil.
func ComputeReachRewardsWithConfig(ip *model.IPOMDP, rewards *model.RewardStructure, target model.BitSet, mm model.MinMaxSpec, cfg *config.EngineConfig, hub *telemetry.Hub) []float64 {
	remain := model.Full(ip.NumStates())
	prod, prodRewards, prodRemain, prodTarget := fsc.Product(ip, rewards, remain, target, fsc.New(2))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	v := search.GenerationalWithConfig(prod, prodRewards, prodRemain, prodTarget, mm, true, rng, cfg.GenerationalPopulation, cfg.PruneIterations, cfg, hub)
	return resultVector(ip, v)
}

// resultVector writes v only into the original initial state's slot,
// per §4.7: "all other entries are left zero".
func resultVector(ip *model.IPOMDP, v float64) []float64 {
	result := make([]float64, ip.NumStates())
	result[ip.FirstInitialState()] = v
	return result
}
