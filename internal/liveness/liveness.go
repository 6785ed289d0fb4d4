// Package liveness implements the node-liveness model: a Bayesian
// Gamma posterior over a node's announce rate, and the closed-form
// death-probability confidence interval derived from it.
package liveness

import "math"

// The Gamma(shape, rate) prior over a node's announce rate encodes an
// "expect one announce per 30 minutes" belief before any evidence:
// Gamma(alpha0=1, beta0=1800).
const (
	PriorAlpha0 = 1.0
	PriorBeta0  = 1800.0
)

// Fixed prior-death-probability constants. Treated as tunable; nothing
// downstream depends on how they were derived.
const (
	priorA = 4.0067e-7
	priorB = 2.7477e-5
)

// DefaultCI is the default two-sided confidence level used when none is
// specified.
const DefaultCI = 0.90

// Posterior is a node's announce-rate posterior: Gamma(alpha, beta) after
// observing kEvents announces across windowSeconds of wall-clock time.
type Posterior struct {
	Alpha         float64
	Beta          float64
	WindowSeconds float64
	KEvents       int
}

// Refit folds kEvents observed over windowSeconds into the prior,
// producing the posterior Gamma(alpha0+k, beta0+window).
func Refit(kEvents int, windowSeconds float64) Posterior {
	return Posterior{
		Alpha:         PriorAlpha0 + float64(kEvents),
		Beta:          PriorBeta0 + windowSeconds,
		WindowSeconds: windowSeconds,
		KEvents:       kEvents,
	}
}

// priorDeathProbability is pi(deltaT): the prior probability a node has
// died, independent of the announce-rate posterior, growing from 0 at
// deltaT=0 towards a/(a+b) as deltaT -> infinity.
func priorDeathProbability(deltaT float64) float64 {
	return (priorA / (priorA + priorB)) * (1 - math.Exp(-(priorA+priorB)*deltaT))
}

// deadProbability combines the prior death probability with the
// Poisson probability of observing zero announces in deltaT seconds at
// rate mu: P_dead(mu) = pi / (pi + (1-pi)*P0(mu)).
func deadProbability(mu, deltaT float64) float64 {
	pi := priorDeathProbability(deltaT)
	p0 := math.Exp(-mu * deltaT)
	denom := pi + (1-pi)*p0
	if denom == 0 {
		return 0
	}
	return pi / denom
}

// DeathProbabilityCI computes the two-sided confidence interval on
// P(node dead | deltaT seconds since last heard), given the node's
// announce-rate posterior. ci defaults to DefaultCI when <= 0 or >= 1.
//
// The interval is built by pushing the posterior's own confidence bounds
// on mu through deadProbability: a low announce-rate quantile implies a
// high death probability and vice versa, so the two bounds are computed
// from opposite tails and then sorted.
func DeathProbabilityCI(p Posterior, deltaT float64, ci float64) (low, high float64) {
	if ci <= 0 || ci >= 1 {
		ci = DefaultCI
	}
	if deltaT <= 0 {
		return 0, 0
	}

	ql := (1 - ci) / 2
	qh := 1 - ql

	muLow := GammaPPF(ql, p.Alpha, p.Beta)
	muHigh := GammaPPF(qh, p.Alpha, p.Beta)

	a := deadProbability(muLow, deltaT)
	b := deadProbability(muHigh, deltaT)

	low, high = a, b
	if low > high {
		low, high = high, low
	}
	return clamp01(low), clamp01(high)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
