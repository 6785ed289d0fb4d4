package rerank

import "testing"

type fakeFeatures map[string]NodeFeatures

func (f fakeFeatures) NodeFeatures(addresses []string) (map[string]NodeFeatures, error) {
	out := make(map[string]NodeFeatures, len(addresses))
	for _, a := range addresses {
		if nf, ok := f[a]; ok {
			out[a] = nf
		}
	}
	return out, nil
}

func TestDedupeByURL(t *testing.T) {
	candidates := []Candidate{
		{URL: "a:/x.mu", Address: "a", Score: 1},
		{URL: "a:/x.mu", Address: "a", Score: 2},
		{URL: "a:/y.mu", Address: "a", Score: 1},
	}
	out := dedupeByURL(candidates)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped candidates, got %d", len(out))
	}
	if out[0].Score != 1 {
		t.Errorf("expected first occurrence kept, got score %v", out[0].Score)
	}
}

func TestCapPerAddress(t *testing.T) {
	candidates := []Candidate{
		{URL: "a:/1.mu", Address: "a"},
		{URL: "a:/2.mu", Address: "a"},
		{URL: "a:/3.mu", Address: "a"},
		{URL: "b:/1.mu", Address: "b"},
	}
	out := capPerAddress(candidates, 2)
	if len(out) != 3 {
		t.Fatalf("expected 3 (2 from a, 1 from b), got %d", len(out))
	}
}

func TestRerankFreshBeatsConfidentlyDead(t *testing.T) {
	now := 1_700_000_000.0
	candidates := []Candidate{
		{URL: "stale:/p.mu", Address: "stale", Score: 5.0, Text: "hello world"},
		{URL: "fresh:/p.mu", Address: "fresh", Score: 5.0, Text: "hello world"},
	}
	features := fakeFeatures{
		"stale": {Rank: 1, LastSeen: now - 90*86400, Alpha: 1, Beta: 1800, HasAlive: true},
		"fresh": {Rank: 1, LastSeen: now - 60, Alpha: 5000, Beta: 5000 * 1800, HasAlive: true},
	}

	results, err := Rerank(candidates, features, now, Options{})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Address != "fresh" {
		t.Errorf("expected fresh node first, got %q", results[0].Address)
	}
	if results[len(results)-1].Address != "stale" {
		t.Errorf("expected stale node last, got %q", results[len(results)-1].Address)
	}
}

func TestMinMaxNormalizeHandlesEqualValues(t *testing.T) {
	if v := minMaxNormalize(5, 5, 5); v != 0 {
		t.Errorf("expected 0 when max==min, got %v", v)
	}
}
