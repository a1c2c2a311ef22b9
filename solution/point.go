// Package solution drives a single (policy, value, witness) point
// towards a local optimum by repeated SCP steps with trust-region
// control: the SolutionPoint driver, C8.
package solution

import (
	"log"
	"time"

	"ipomdp/config"
	"ipomdp/idtmc"
	"ipomdp/lp"
	"ipomdp/model"
	"ipomdp/quant"
	"ipomdp/scp"
	"ipomdp/simple"
	"ipomdp/telemetry"
)

// Defaults from §4.5/§4.6: the trust region starts loose and is
// expanded on acceptance or contracted on rejection by this factor,
// until it falls below the convergence threshold or the iteration
// budget is exhausted.
const (
	InitialTrustRegion  = 1.5
	RegionThreshold     = 1e-4
	RegionChangeFactor  = 1.5
	InitialIterationCap = 50
	PenaltyWeight       = 1e4
)

// SolutionPoint is one local-search trajectory over the simple IPOMDP.
type SolutionPoint struct {
	simpleIP      *simple.IPOMDP
	spec          *quant.Spec
	lpOracle      lp.Oracle
	reachOracle   idtmc.ReachOracle
	controllerDir model.MinMax

	point               *scp.Point
	trustRegion         float64
	regionThreshold     float64
	regionChangeFactor  float64
	iterationsLeft      int
	initialIterationCap int
	currentObjective    float64
	penaltyWeight       float64
	failed              bool

	id  int
	hub *telemetry.Hub
}

// WithTelemetry attaches a telemetry hub and point id; every subsequent
// GetCloserTowardsOptimum call publishes a progress event. Calling it is
// optional: a SolutionPoint with no hub attached runs exactly as before.
func (sol *SolutionPoint) WithTelemetry(hub *telemetry.Hub, id int) *SolutionPoint {
	sol.hub = hub
	sol.id = id
	return sol
}

// New builds a SolutionPoint seeded with a fresh point (per scp.NewPoint)
// using config.Default(), whose values match this package's named
// constants; callers that want a randomised
// restart pass in a simpleIP built from a freshly re-permuted
// simple.Binarize call.
func New(simpleIP *simple.IPOMDP, sp *quant.Spec, lpOracle lp.Oracle, reachOracle idtmc.ReachOracle, controllerDir model.MinMax) *SolutionPoint {
	return NewWithConfig(simpleIP, sp, lpOracle, reachOracle, controllerDir, config.Default())
}

// NewWithConfig is New, but reads its trust-region/iteration-cap/penalty
// constants from cfg instead of the package defaults, so an operator
// can retune the SCP driver via config.FromYaml without a rebuild.
func NewWithConfig(simpleIP *simple.IPOMDP, sp *quant.Spec, lpOracle lp.Oracle, reachOracle idtmc.ReachOracle, controllerDir model.MinMax, cfg *config.EngineConfig) *SolutionPoint {
	point := scp.NewPoint(simpleIP, sp)
	return &SolutionPoint{
		simpleIP:            simpleIP,
		spec:                sp,
		lpOracle:            lpOracle,
		reachOracle:         reachOracle,
		controllerDir:       controllerDir,
		point:               point,
		trustRegion:         cfg.InitialTrustRegion,
		regionThreshold:     cfg.RegionThreshold,
		regionChangeFactor:  cfg.RegionChangeFactor,
		iterationsLeft:      cfg.SCPIterationCap,
		initialIterationCap: cfg.SCPIterationCap,
		currentObjective:    point.Value[simpleIP.Initial],
		penaltyWeight:       cfg.PenaltyWeight,
	}
}

// GetCloserTowardsOptimum advances the point by one SCP step, per §4.6.
// It reports true once the point is done: the trust region has
// collapsed below the threshold, the iteration budget is spent, or the
// LP/oracle call failed (abandoned, not fatal -- see §4.6 and §7).
func (sol *SolutionPoint) GetCloserTowardsOptimum() bool {
	if sol.trustRegion <= sol.regionThreshold || sol.iterationsLeft == 0 {
		return true
	}

	next, err := scp.Step(sol.simpleIP, sol.spec, sol.point, sol.trustRegion, sol.penaltyWeight, sol.lpOracle, sol.reachOracle, sol.controllerDir)
	if err != nil {
		log.Printf("solution: SCP step failed, abandoning point: %v", err)
		sol.failed = true
		return true
	}

	candidate := next.Value[sol.simpleIP.Initial]
	// Accept on genuine improvement in the controller's chosen direction;
	// expand the trust region to let the next linearisation range
	// further, otherwise shrink it around the rejected step.
	if sol.spec.Sign*candidate > sol.spec.Sign*sol.currentObjective {
		sol.point = next
		sol.currentObjective = candidate
		sol.trustRegion *= sol.regionChangeFactor
	} else {
		sol.trustRegion /= sol.regionChangeFactor
	}

	if sol.hub != nil {
		sol.hub.Publish(telemetry.Event{
			PointID:     sol.id,
			Phase:       "scp-step",
			Iteration:   sol.initialIterationCap - sol.iterationsLeft,
			TrustRegion: sol.trustRegion,
			Objective:   sol.Objective(),
			Timestamp:   time.Now(),
		})
	}

	sol.iterationsLeft--
	return false
}

// Converge runs GetCloserTowardsOptimum to completion.
func (sol *SolutionPoint) Converge() {
	for !sol.GetCloserTowardsOptimum() {
	}
}

// Advance runs up to n SCP steps, stopping early if the point finishes.
// Used by the generational outer-search strategy, which advances every
// surviving point a fixed number of steps per round rather than to
// completion.
func (sol *SolutionPoint) Advance(n int) {
	for i := 0; i < n; i++ {
		if sol.GetCloserTowardsOptimum() {
			return
		}
	}
}

// Objective is sign * main[s0], the quantity the outer search ranks
// points by.
func (sol *SolutionPoint) Objective() float64 {
	return sol.spec.Sign * sol.currentObjective
}

// Value returns the raw value at the initial state.
func (sol *SolutionPoint) Value() float64 {
	return sol.currentObjective
}

// Failed reports whether the point was abandoned due to an oracle
// failure rather than converging normally.
func (sol *SolutionPoint) Failed() bool {
	return sol.failed
}
