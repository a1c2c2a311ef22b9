/*
ipomdp computes worst/best-case reachability probabilities and expected
rewards over Interval POMDPs, via binarized finite-state-controller
products solved by sequential convex programming. This command line is
a demo harness over the named scenarios used throughout development,
not a general model-file loader; wiring up a real IPOMDP description
format (JSON, PRISM-style) is future work, not this prototype's job.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"ipomdp/config"
	"ipomdp/dashboard"
	"ipomdp/engine"
	"ipomdp/model"
	"ipomdp/telemetry"
)

var (
	scenario   *string
	operation  *string
	controller *string
	adversary  *string
	configPath *string
	dash       *bool
	dashAddr   *string
	concurrent *bool
)

func init() {
	scenario = flag.String("scenario", "corridor", "demo scenario: corridor, imdp, sharing, reward, degenerate, zeroremain")
	operation = flag.String("op", "reach", "operation: reach (probability) or reward")
	controller = flag.String("controller", "max", "controller direction: max or min")
	adversary = flag.String("adversary", "min", "uncertainty direction: max or min")
	configPath = flag.String("config", "", "optional YAML config path; defaults used when empty")
	dash = flag.Bool("dashboard", false, "serve a live progress dashboard while solving")
	dashAddr = flag.String("dashboard-addr", ":8080", "dashboard listen address")
	concurrent = flag.Bool("concurrent-preview", false, "run multi-start population members concurrently (reach only); best paired with -dashboard")
	flag.Parse()
}

func loadConfig() *config.EngineConfig {
	if *configPath == "" {
		return config.Default()
	}
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		fmt.Println("config: falling back to defaults:", err)
		return config.Default()
	}
	return cfg
}

func parseDirection(s string) model.MinMax {
	if s == "max" {
		return model.Max
	}
	return model.Min
}

func selectScenario(name string) (ip *model.IPOMDP, remain, target model.BitSet, rewards *model.RewardStructure) {
	switch name {
	case "imdp":
		ip, remain, target = model.ImdpAsDtmc()
	case "sharing":
		ip, remain, target = model.ObservationSharing()
	case "reward":
		ip, rewards, target = model.RewardSelfLoop()
		remain = model.Full(ip.NumStates())
	case "degenerate":
		ip, remain, target = model.DegenerateIntervals()
	case "zeroremain":
		ip, remain, target = model.ZeroRemain()
	default:
		ip, remain, target = model.FullyObservableCorridor()
	}
	return
}

func runApp() error {
	cfg := loadConfig()

	ip, remain, target, rewards := selectScenario(*scenario)
	mm := model.MinMaxSpec{Controller: parseDirection(*controller), Uncertainty: parseDirection(*adversary)}

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hub *telemetry.Hub
	if *dash {
		hub = telemetry.NewHub(appCtx.Done())
		srv := dashboard.NewServer(*dashAddr, hub)
		go func() {
			if err := srv.Serve(appCtx); err != nil {
				fmt.Println("dashboard:", err)
			}
		}()
		fmt.Println("dashboard listening on", *dashAddr)
	}

	var result []float64
	switch {
	case *operation == "reward":
		if rewards == nil {
			return fmt.Errorf("scenario %q has no reward structure; pass -op reach instead", *scenario)
		}
		result = engine.ComputeReachRewardsWithConfig(ip, rewards, target, mm, cfg, hub)
	case *concurrent:
		result = engine.ComputeReachProbsConcurrent(appCtx, ip, remain, target, mm, cfg, hub)
	default:
		result = engine.ComputeReachProbsWithConfig(ip, remain, target, mm, cfg, hub)
	}

	fmt.Printf("scenario=%s op=%s controller=%s adversary=%s\n", *scenario, *operation, *controller, *adversary)
	fmt.Printf("value at initial state %d: %v\n", ip.FirstInitialState(), result[ip.FirstInitialState()])
	return nil
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
	}
}
