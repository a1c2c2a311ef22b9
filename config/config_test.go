package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultMatchesNamedConstants(t *testing.T) {
	Convey("Given the default engine config", t, func() {
		cfg := Default()

		Convey("Every constant matches the documented defaults", func() {
			So(cfg.PenaltyWeight, ShouldEqual, 1e4)
			So(cfg.InitialTrustRegion, ShouldEqual, 1.5)
			So(cfg.RegionThreshold, ShouldEqual, 1e-4)
			So(cfg.RegionChangeFactor, ShouldEqual, 1.5)
			So(cfg.SCPIterationCap, ShouldEqual, 50)
			So(cfg.MultiStartPopulation, ShouldEqual, 10)
			So(cfg.GenerationalPopulation, ShouldEqual, 32)
			So(cfg.PruneIterations, ShouldEqual, 4)
			So(cfg.ProbIterationCap, ShouldEqual, 2000)
			So(cfg.RewardIterationCap, ShouldEqual, 5000)
		})
	})
}
