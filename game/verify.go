package game

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Cash-out targets and tail points checked by the verification suite.
var (
	DefaultCashOutTargets = []float64{1.5, 2.0, 2.5, 3.0, 4.0, 5.0, 10.0}
	DefaultTailTargets    = []float64{1.5, 2.0, 3.0, 4.0, 5.0, 7.0, 10.0, 20.0, 50.0}
)

// InstantCrashThreshold marks a round that dies before paying anything useful.
const InstantCrashThreshold = 1.01

type TailPoint struct {
	Multiplier float64 `json:"multiplier"`
	Observed   float64 `json:"observed"`
	Expected   float64 `json:"expected"`
}

type DistributionReport struct {
	Rounds              int         `json:"rounds"`
	Jackpots            int         `json:"jackpots"`
	InstantCrashes      int         `json:"instantCrashes"`
	Mean                float64     `json:"mean"`
	Median              float64     `json:"median"`
	JackpotRate         float64     `json:"jackpotRate"`
	ExpectedJackpotRate float64     `json:"expectedJackpotRate"`
	Tail                []TailPoint `json:"tail"`
}

// SimulateDistribution draws rounds crash points and compares the observed
// tail P(crash >= X) against (1-h)/X for each target not above the cap.
func SimulateDistribution(cfg LaneConfig, src RandomSource, rounds int, targets []float64) DistributionReport {
	report := DistributionReport{Rounds: rounds, ExpectedJackpotRate: JackpotProbability(cfg)}
	if rounds <= 0 {
		return report
	}

	points := make([]float64, rounds)
	var sum float64
	for i := range points {
		cp := CrashPoint(cfg, src.Float64())
		points[i] = cp
		sum += cp
		switch {
		case cp >= cfg.MaxMultiplier:
			report.Jackpots++
		case cp <= InstantCrashThreshold:
			report.InstantCrashes++
		}
	}
	slices.Sort(points)

	report.Mean = sum / float64(rounds)
	report.Median = points[rounds/2]
	report.JackpotRate = float64(report.Jackpots) / float64(rounds)

	for _, x := range targets {
		if x > cfg.MaxMultiplier {
			continue
		}
		idx, _ := slices.BinarySearch(points, x)
		report.Tail = append(report.Tail, TailPoint{
			Multiplier: x,
			Observed:   float64(rounds-idx) / float64(rounds),
			Expected:   WinProbability(cfg, x),
		})
	}
	return report
}

type CashOutReport struct {
	Target         float64 `json:"target"`
	Rounds         int     `json:"rounds"`
	Wagered        float64 `json:"wagered"`
	Returned       float64 `json:"returned"`
	ExpectedReturn float64 `json:"expectedReturn"`
	HouseEdge      float64 `json:"houseEdge"`
}

// SimulateCashOut plays rounds unit bets that always cash out at target.
// A round pays when the crash point is at least target.
func SimulateCashOut(cfg LaneConfig, src RandomSource, rounds int, target float64) CashOutReport {
	report := CashOutReport{Target: target, Rounds: rounds}
	for i := 0; i < rounds; i++ {
		report.Wagered++
		if CrashPoint(cfg, src.Float64()) >= target {
			report.Returned += target
		}
	}
	if report.Wagered > 0 {
		report.ExpectedReturn = report.Returned / report.Wagered
		report.HouseEdge = 1 - report.ExpectedReturn
	}
	return report
}

type GrowthPoint struct {
	Elapsed    time.Duration `json:"elapsed"`
	Multiplier float64       `json:"multiplier"`
}

// GrowthTable samples MultiplierAt at each offset.
func GrowthTable(k float64, offsets []time.Duration) []GrowthPoint {
	out := make([]GrowthPoint, 0, len(offsets))
	for _, d := range offsets {
		out = append(out, GrowthPoint{Elapsed: d, Multiplier: MultiplierAt(d, k)})
	}
	return out
}

type Issue struct {
	Severity string `json:"severity"`
	Lane     string `json:"lane"`
	Message  string `json:"message"`
}

// DetectIssues flags lanes whose simulated edge at 2x drifts more than two
// points from the configured edge, or whose jackpot rate drifts more than one.
func DetectIssues(s Settings, src RandomSource, rounds int) []Issue {
	var issues []Issue
	for i, cfg := range s.Lanes {
		key := ZombieType(i).ConfigKey()

		at2x := SimulateCashOut(cfg, src, rounds, 2.0)
		if math.Abs(at2x.HouseEdge-cfg.HouseEdge)*100 > 2 {
			issues = append(issues, Issue{
				Severity: "HIGH",
				Lane:     key,
				Message:  fmt.Sprintf("house edge at 2x: configured %.2f%%, simulated %.2f%%", cfg.HouseEdge*100, at2x.HouseEdge*100),
			})
		}

		dist := SimulateDistribution(cfg, src, rounds, nil)
		if math.Abs(dist.JackpotRate-dist.ExpectedJackpotRate)*100 > 1 {
			issues = append(issues, Issue{
				Severity: "MEDIUM",
				Lane:     key,
				Message:  fmt.Sprintf("jackpot rate: expected %.2f%%, simulated %.2f%%", dist.ExpectedJackpotRate*100, dist.JackpotRate*100),
			})
		}
	}
	return issues
}
