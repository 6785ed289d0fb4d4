package pagerank

import (
	"math"
	"testing"
)

func TestComputeSumsToVertexCount(t *testing.T) {
	edges := []Edge{{Src: "a", Dst: "b"}, {Src: "b", Dst: "c"}, {Src: "c", Dst: "a"}}
	vertices := []string{"a", "b", "c"}

	ranks, err := Compute(edges, vertices, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	sum := 0.0
	for _, r := range ranks {
		sum += r
	}
	if math.Abs(sum-float64(len(vertices))) > 1e-6 {
		t.Errorf("ranks should sum to %d, got %v", len(vertices), sum)
	}
}

func TestDanglingNodeDoesNotLeakMass(t *testing.T) {
	// c has no outbound edges (dangling); mass must still redistribute.
	edges := []Edge{{Src: "a", Dst: "b"}, {Src: "b", Dst: "c"}}
	vertices := []string{"a", "b", "c"}

	ranks, err := Compute(edges, vertices, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	sum := 0.0
	for _, r := range ranks {
		sum += r
	}
	if math.Abs(sum-3.0) > 1e-6 {
		t.Errorf("expected mass conservation despite dangling node, sum=%v", sum)
	}
}

func TestCitedNodeRanksHigher(t *testing.T) {
	// b is cited by both a and c; it should end up with the highest rank.
	edges := []Edge{{Src: "a", Dst: "b"}, {Src: "c", Dst: "b"}, {Src: "a", Dst: "c"}}
	vertices := []string{"a", "b", "c"}

	ranks, err := Compute(edges, vertices, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if ranks["b"] <= ranks["a"] || ranks["b"] <= ranks["c"] {
		t.Errorf("expected b to rank highest, got %+v", ranks)
	}
}

func TestComputeRejectsInvalidOptions(t *testing.T) {
	if _, err := Compute(nil, []string{"a"}, Options{Alpha: 2}); err == nil {
		t.Error("expected error for alpha out of range")
	}
	if _, err := Compute(nil, []string{"a"}, Options{MaxIters: -1}); err == nil {
		t.Error("expected error for negative max iterations")
	}
}

func TestComputeEmptyVertices(t *testing.T) {
	ranks, err := Compute(nil, nil, Options{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(ranks) != 0 {
		t.Errorf("expected empty result, got %v", ranks)
	}
}
