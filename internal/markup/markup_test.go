package markup

import (
	"testing"
)

func TestStripIdempotent(t *testing.T) {
	inputs := []string{
		"`FaaaHello `<x> World\n#c\n> q\n\nA",
		"`fplain `btext`c`a`r",
		"no markup here at all",
		"`[:/page/index.mu] some `Flink text",
	}
	for _, in := range inputs {
		once := Strip(in)
		twice := Strip(once)
		if once != twice {
			t.Errorf("Strip not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestStripScenario(t *testing.T) {
	// Long-form color escape `Faaa consumed whole (5 chars); `<x> tag
	// becomes a space; the #c comment line empties; the leading ">" on
	// "> q" is stripped but the space after it survives; runs of spaces
	// collapse to one, blank-line runs collapse to exactly one blank line.
	in := "`FaaaHello `<x> World\n#c\n> q\n\nA"
	got := Strip(in)
	want := "Hello World\n\n q\n\nA"
	if got != want {
		t.Errorf("Strip(%q) = %q, want %q", in, got, want)
	}
}

func TestExtractLinksThreeShapes(t *testing.T) {
	address := "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	target := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	page := "`[:/page/index.mu] `[label`" + target + ":/page/x.mu] `[q`:/page/y.mu`u|a=v]"

	internal, external := ExtractLinks(address, page)

	if len(internal) != 1 || internal[0] != address+":/page/index.mu" {
		t.Errorf("internal = %v", internal)
	}

	wantExternal := map[string]bool{
		target + ":/page/x.mu": true,
		":/page/y.mu`u|a=v":    true,
	}
	if len(external) != len(wantExternal) {
		t.Fatalf("external = %v, want keys %v", external, wantExternal)
	}
	for _, e := range external {
		if !wantExternal[e] {
			t.Errorf("unexpected external link %q", e)
		}
	}
}

func TestExtractLinksNoDuplicates(t *testing.T) {
	address := "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	page := "`[:/page/a.mu] `[:/page/a.mu] `[:/page/a.mu]"
	internal, _ := ExtractLinks(address, page)
	if len(internal) != 1 {
		t.Errorf("expected deduplication, got %v", internal)
	}
}

func TestExtractLinksSkipsMalformed(t *testing.T) {
	address := "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	page := "`[a`b`c`d] `[:/page/ok.mu]"
	internal, external := ExtractLinks(address, page)
	if len(internal) != 1 || len(external) != 0 {
		t.Errorf("expected only the well-formed block to survive, got internal=%v external=%v", internal, external)
	}
}

func TestExtractLinksParamsStar(t *testing.T) {
	address := "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	page := "`[q`:/page/y.mu`*junk]"
	_, external := ExtractLinks(address, page)
	if len(external) != 1 || external[0] != ":/page/y.mu" {
		t.Errorf("expected discarded params, got %v", external)
	}
}

func TestAddressOf(t *testing.T) {
	url := "deadbeefdeadbeefdeadbeefdeadbeef:/page/index.mu"
	if got := AddressOf(url); got != "deadbeefdeadbeefdeadbeefdeadbeef" {
		t.Errorf("AddressOf = %q", got)
	}
}

func TestIsValidAddress(t *testing.T) {
	valid := []string{"deadbeefdeadbeefdeadbeefdeadbeef", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}
	invalid := []string{"", "tooshort", "deadbeefdeadbeefdeadbeefdeadbeeg", "deadbeefdeadbeefdeadbeefdeadbee"}
	for _, v := range valid {
		if !IsValidAddress(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}
	for _, v := range invalid {
		if IsValidAddress(v) {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}
