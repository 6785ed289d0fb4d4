package liveness

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAnnounceLog(t *testing.T, dir, name, content string) {
	t.Helper()
	announceDir := filepath.Join(dir, "announces")
	if err := os.MkdirAll(announceDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(announceDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRefitAllCountsEventsPerDestination(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	lines := "" +
		`{"dst":"aaaa","datetime":"2026-07-30T10:00:00Z"}` + "\n" +
		`{"dst":"aaaa","datetime":"2026-07-31T10:00:00Z"}` + "\n" +
		`{"dst":"bbbb","datetime":"2026-07-31T11:00:00Z"}` + "\n" +
		"not json at all\n" +
		`{"dst":"","datetime":"2026-07-31T11:00:00Z"}` + "\n"
	writeAnnounceLog(t, dir, "nomadnetwork.node.log", lines)

	posteriors, err := RefitAll(dir, now, 30)
	if err != nil {
		t.Fatalf("RefitAll: %v", err)
	}

	a, ok := posteriors["aaaa"]
	if !ok {
		t.Fatal("expected posterior for aaaa")
	}
	if a.KEvents != 2 {
		t.Errorf("aaaa KEvents = %d, want 2", a.KEvents)
	}
	if a.Alpha != PriorAlpha0+2 {
		t.Errorf("aaaa Alpha = %v, want %v", a.Alpha, PriorAlpha0+2)
	}
	// the observable window is capped at now - earliest event, not the
	// full lookback
	wantWindow := now.Sub(time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)).Seconds()
	if a.WindowSeconds != wantWindow {
		t.Errorf("aaaa WindowSeconds = %v, want %v", a.WindowSeconds, wantWindow)
	}

	b, ok := posteriors["bbbb"]
	if !ok {
		t.Fatal("expected posterior for bbbb")
	}
	if b.KEvents != 1 {
		t.Errorf("bbbb KEvents = %d, want 1", b.KEvents)
	}
}

func TestRefitAllSkipsEventsPastLookback(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	lines := "" +
		`{"dst":"aaaa","datetime":"2026-01-01T10:00:00Z"}` + "\n" +
		`{"dst":"aaaa","datetime":"2026-07-31T10:00:00Z"}` + "\n"
	writeAnnounceLog(t, dir, "nomadnetwork.node.log.1", lines)

	posteriors, err := RefitAll(dir, now, 30)
	if err != nil {
		t.Fatalf("RefitAll: %v", err)
	}
	if posteriors["aaaa"].KEvents != 1 {
		t.Errorf("KEvents = %d, want 1 (January announce outside lookback)", posteriors["aaaa"].KEvents)
	}
}

func TestRefitAllEmptyLogDir(t *testing.T) {
	posteriors, err := RefitAll(t.TempDir(), time.Now(), 30)
	if err != nil {
		t.Fatalf("RefitAll: %v", err)
	}
	if len(posteriors) != 0 {
		t.Errorf("expected no posteriors, got %v", posteriors)
	}
}
