// Package rerank implements the re-ranker: it dedupes and caps raw
// full-text hits, fuses BM25 text relevance with PageRank authority and a
// Bayesian alive probability, and produces the final ordered result list.
package rerank

import (
	"math"
	"sort"

	"github.com/latebit/waystone/internal/liveness"
)

// Candidate is one raw hit coming out of the full-text index, before
// re-ranking.
type Candidate struct {
	URL     string
	Text    string
	Owner   string
	Address string
	Name    string
	Score   float64 // raw BM25F score
}

// Result is a fully re-ranked, display-ready search result.
type Result struct {
	URL     string
	Text    string
	Owner   string
	Address string
	Name    string
	Score   float64 // fused [0,1] score
}

// NodeFeatures is the subset of a node record the fuser needs per address.
type NodeFeatures struct {
	Rank     float64
	LastSeen float64
	Alpha    float64
	Beta     float64
	HasAlive bool // false when the address has no posterior yet (new node)
}

// FeatureSource batch-fetches node features for re-ranking. Implemented
// by internal/store via a thin adapter in internal/service.
type FeatureSource interface {
	NodeFeatures(addresses []string) (map[string]NodeFeatures, error)
}

// Options configures a re-rank pass.
type Options struct {
	MaxPerAddress int     // default 2
	CI            float64 // confidence level fed to liveness.DeathProbabilityCI
	DeadThreshold float64 // p_dead_low above this sorts a result last; default 0.9
}

func (o *Options) applyDefaults() {
	if o.MaxPerAddress <= 0 {
		o.MaxPerAddress = 2
	}
	if o.CI <= 0 {
		o.CI = liveness.DefaultCI
	}
	if o.DeadThreshold <= 0 {
		o.DeadThreshold = 0.9
	}
}

// Rerank dedupes candidates by URL, caps results per address, fuses
// text/rank/alive signals using features fetched from src, and returns the
// final ordering.
func Rerank(candidates []Candidate, src FeatureSource, now float64, opts Options) ([]Result, error) {
	opts.applyDefaults()

	deduped := dedupeByURL(candidates)
	capped := capPerAddress(deduped, opts.MaxPerAddress)
	if len(capped) == 0 {
		return nil, nil
	}

	addresses := uniqueAddresses(capped)
	features, err := src.NodeFeatures(addresses)
	if err != nil {
		return nil, err
	}

	type scored struct {
		cand     Candidate
		textNorm float64
		rankNorm float64
		alive    float64
		pDeadLow float64
		fused    float64
	}

	rows := make([]scored, len(capped))
	scores := make([]float64, len(capped))
	logRanks := make([]float64, len(capped))
	for i, c := range capped {
		scores[i] = c.Score
		f := features[c.Address]
		logRanks[i] = math.Log1p(f.Rank)
	}
	textMin, textMax := minMax(scores)
	rankMin, rankMax := minMax(logRanks)

	for i, c := range capped {
		f := features[c.Address]

		var pDeadLow, pDeadHigh float64
		if f.HasAlive {
			deltaT := now - f.LastSeen
			pDeadLow, pDeadHigh = liveness.DeathProbabilityCI(liveness.Posterior{Alpha: f.Alpha, Beta: f.Beta}, deltaT, opts.CI)
		}
		alive := clamp01(1 - (pDeadLow+pDeadHigh)/2)

		rows[i] = scored{
			cand:     c,
			textNorm: minMaxNormalize(c.Score, textMin, textMax),
			rankNorm: minMaxNormalize(logRanks[i], rankMin, rankMax),
			alive:    alive,
			pDeadLow: pDeadLow,
		}
		rows[i].fused = 0.65*rows[i].textNorm + 0.25*rows[i].rankNorm + 0.10*rows[i].alive
	}

	sort.SliceStable(rows, func(i, j int) bool {
		iDead := rows[i].pDeadLow > opts.DeadThreshold
		jDead := rows[j].pDeadLow > opts.DeadThreshold
		if iDead != jDead {
			return !iDead // confidently-dead results sort last
		}
		return rows[i].fused > rows[j].fused
	})

	out := make([]Result, len(rows))
	for i, r := range rows {
		out[i] = Result{
			URL:     r.cand.URL,
			Text:    r.cand.Text,
			Owner:   r.cand.Owner,
			Address: r.cand.Address,
			Name:    r.cand.Name,
			Score:   r.fused,
		}
	}
	return out, nil
}

// dedupeByURL keeps the first occurrence of each URL, preserving order.
func dedupeByURL(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}

// capPerAddress keeps at most maxPer candidates per address, preserving
// order.
func capPerAddress(candidates []Candidate, maxPer int) []Candidate {
	counts := make(map[string]int, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if counts[c.Address] >= maxPer {
			continue
		}
		counts[c.Address]++
		out = append(out, c)
	}
	return out
}

func uniqueAddresses(candidates []Candidate) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Address]; ok {
			continue
		}
		seen[c.Address] = struct{}{}
		out = append(out, c.Address)
	}
	return out
}

// minMax returns the minimum and maximum of xs, or (0,0) for an empty
// slice.
func minMax(xs []float64) (min, max float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	min, max = xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

// minMaxNormalize scales x into [0,1] given the observed min/max,
// returning 0 when every value is equal (max == min).
func minMaxNormalize(x, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (x - min) / (max - min)
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
