package textnorm

import "testing"

func TestFoldDiacritics(t *testing.T) {
	if got := Fold("Frée Nitró"); got != "free nitro" {
		t.Fatalf("expected %q, got %q", "free nitro", got)
	}
}

func TestFoldHomoglyphs(t *testing.T) {
	// "е" and "о" here are Cyrillic.
	if got := Fold("frее gift"); got != "free gift" {
		t.Fatalf("expected %q, got %q", "free gift", got)
	}
}

func TestStripVariants(t *testing.T) {
	folded := Fold("f r.e-e n!i t r o")
	if got := StripSpaces(folded); got != "fr.e-en!itro" {
		t.Fatalf("unexpected strip spaces: %q", got)
	}
	if got := StripSpacesAndPunct(folded); got != "freenitro" {
		t.Fatalf("unexpected strip spaces+punct: %q", got)
	}
}

func TestHasToken(t *testing.T) {
	folded := Fold("grab your scamlink now")
	if !HasToken(folded, "scamlink") {
		t.Fatalf("expected token match")
	}
	if HasToken(folded, "scam") {
		t.Fatalf("substring must not count as token")
	}
}
