package liveness

import (
	"math"
	"testing"
)

func TestDeathProbabilityCIZeroAtZeroGap(t *testing.T) {
	p := Refit(10, 3600)
	low, high := DeathProbabilityCI(p, 0, DefaultCI)
	if low != 0 || high != 0 {
		t.Errorf("expected (0,0) at deltaT=0, got (%v,%v)", low, high)
	}
}

func TestDeathProbabilityCIMonotoneInGap(t *testing.T) {
	p := Refit(5, 3600)
	var prevLow, prevHigh float64
	for _, dt := range []float64{3600, 86400, 7 * 86400, 30 * 86400, 90 * 86400} {
		low, high := DeathProbabilityCI(p, dt, DefaultCI)
		if low < prevLow-1e-9 || high < prevHigh-1e-9 {
			t.Errorf("CI bounds not monotone at deltaT=%v: (%v,%v) after (%v,%v)", dt, low, high, prevLow, prevHigh)
		}
		if low > high {
			t.Errorf("low > high at deltaT=%v: (%v,%v)", dt, low, high)
		}
		prevLow, prevHigh = low, high
	}
}

func TestDeathProbabilityCINarrowsWithEvidence(t *testing.T) {
	// A short gap: over long gaps both intervals saturate at (1,1) and
	// have zero width whatever the evidence.
	deltaT := 600.0

	weak := Refit(2, 3600)
	strong := Refit(5000, 30*86400)

	lowWeak, highWeak := DeathProbabilityCI(weak, deltaT, DefaultCI)
	lowStrong, highStrong := DeathProbabilityCI(strong, deltaT, DefaultCI)

	widthWeak := highWeak - lowWeak
	widthStrong := highStrong - lowStrong
	if widthStrong >= widthWeak {
		t.Errorf("expected CI to narrow with more evidence: weak width %v, strong width %v", widthWeak, widthStrong)
	}
}

func TestGammaPPFMatchesMeanAtHighShape(t *testing.T) {
	// For large alpha, the Gamma distribution concentrates around its
	// mean alpha/beta; the median quantile should land close to it.
	alpha, beta := 10000.0, 10000.0*1800.0
	median := GammaPPF(0.5, alpha, beta)
	mean := alpha / beta
	if math.Abs(median-mean)/mean > 0.02 {
		t.Errorf("median %v too far from mean %v", median, mean)
	}
}

func TestRefitAccumulatesPrior(t *testing.T) {
	p := Refit(0, 0)
	if p.Alpha != PriorAlpha0 || p.Beta != PriorBeta0 {
		t.Errorf("zero-evidence refit should equal the prior, got %+v", p)
	}

	p2 := Refit(10, 3600)
	if p2.Alpha != PriorAlpha0+10 {
		t.Errorf("alpha should be alpha0+k, got %v", p2.Alpha)
	}
	if p2.Beta != PriorBeta0+3600 {
		t.Errorf("beta should be beta0+window, got %v", p2.Beta)
	}
}
