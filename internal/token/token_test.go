package token_test

import (
	"testing"

	"github.com/snapdock/snapdock/internal/token"
)

// =============================================================================
// Normalization Tests
// =============================================================================

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Café",
		"  Quarterly-Report.DOCX ",
		"Visual   Studio\tCode",
		"sarvajña",
		"",
	}
	for _, in := range inputs {
		once := token.Normalize(in)
		twice := token.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeDiacritics(t *testing.T) {
	if token.Normalize("Café") != token.Normalize("CAFE") {
		t.Errorf("Expected diacritic-insensitive normalization, got %q vs %q",
			token.Normalize("Café"), token.Normalize("CAFE"))
	}
	if got := token.Normalize("sarvajña"); got != "sarvajna" {
		t.Errorf("Normalize(sarvajña) = %q, want sarvajna", got)
	}
}

func TestNormalizeCollapsesPunctuation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"quarterly-report.docx", "quarterly report docx"},
		{"Untitled - Editor", "untitled editor"},
		{"  a///b  ", "a b"},
		{"...", ""},
	}
	for _, tc := range tests {
		if got := token.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// =============================================================================
// Classification Tests
// =============================================================================

func testGroups() []token.Group {
	return []token.Group{
		{Name: "word processor", Labels: []string{"Microsoft Word", "Word"}},
		{Name: "code editor", Labels: []string{"Visual Studio Code", "VS Code", "Code"}},
		{Name: "browser", Labels: []string{"Microsoft Edge", "Edge", "Google Chrome", "Chrome", "Browser"}},
	}
}

func TestClassifySpecificAndGeneric(t *testing.T) {
	specific, generic := token.Classify([]string{"quarterly-report.docx", "word"}, testGroups())

	if len(specific) == 0 {
		t.Fatal("Expected specific tokens")
	}
	for _, s := range specific {
		if s.Kind != token.Specific {
			t.Errorf("Token %q in specific pool has kind %v", s.Text, s.Kind)
		}
	}
	// "word" activates its whole group.
	genTexts := token.Texts(generic)
	if !contains(genTexts, "microsoft word") || !contains(genTexts, "word") {
		t.Errorf("Expected word-processor group in generic pool, got %v", genTexts)
	}
	// Un-hinted groups stay out.
	if contains(genTexts, "chrome") || contains(genTexts, "code") {
		t.Errorf("Generic pool leaked a group the hints never mentioned: %v", genTexts)
	}
}

func TestClassifyNoTokenInBothPools(t *testing.T) {
	specific, generic := token.Classify([]string{"report.docx", "edge", "Edge"}, testGroups())

	genSet := make(map[string]bool)
	for _, g := range generic {
		genSet[g.Text] = true
	}
	for _, s := range specific {
		if genSet[s.Text] {
			t.Errorf("Token %q appears in both pools", s.Text)
		}
	}
}

func TestClassifyStemExpansion(t *testing.T) {
	specific, _ := token.Classify([]string{"report.docx"}, testGroups())

	texts := token.Texts(specific)
	if !contains(texts, "report docx") {
		t.Errorf("Expected full normalized token, got %v", texts)
	}
	if !contains(texts, "report") {
		t.Errorf("Expected pre-extension stem, got %v", texts)
	}
}

func TestClassifyDedupePreservesOrder(t *testing.T) {
	specific, _ := token.Classify(
		[]string{"Alpha", "beta", "ALPHA", "gamma", "Beta"}, nil)

	texts := token.Texts(specific)
	want := []string{"alpha", "beta", "gamma"}
	if len(texts) != len(want) {
		t.Fatalf("Expected %v, got %v", want, texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("Order not preserved at %d: got %v, want %v", i, texts, want)
		}
	}
}

func TestClassifyDropsShortAndNonAlpha(t *testing.T) {
	specific, generic := token.Classify([]string{"ab", "12345", "x"}, testGroups())
	if len(specific) != 0 || len(generic) != 0 {
		t.Errorf("Expected no tokens from noise hints, got %v / %v", specific, generic)
	}
}

// =============================================================================
// Match Tie-Break Tests
// =============================================================================

func TestMatchSetAllRuleForNarrowSets(t *testing.T) {
	specific, _ := token.Classify([]string{"quarterly-report", "docx"}, nil)
	set := token.NewMatchSet(specific)
	if set.Len() != 2 {
		t.Fatalf("Expected 2 tokens, got %d", set.Len())
	}

	if set.Matches("quarterly-report - Editor") {
		t.Error("Two-token set requires ALL tokens; only one present")
	}
	if !set.Matches("quarterly-report.docx - Editor") {
		t.Error("Candidate containing both tokens should match")
	}
}

func TestMatchSetAnyRuleForBroadSets(t *testing.T) {
	specific, _ := token.Classify([]string{"alpha", "beta", "gamma"}, nil)
	set := token.NewMatchSet(specific)
	if set.Len() != 3 {
		t.Fatalf("Expected 3 tokens, got %d", set.Len())
	}

	if !set.Matches("something with gamma inside") {
		t.Error("Three-token set should match on ANY containment")
	}
	if set.Matches("nothing relevant here") {
		t.Error("No token present; must not match")
	}
}

func TestMatchSetDiacriticInsensitive(t *testing.T) {
	specific, _ := token.Classify([]string{"sarvajna"}, nil)
	set := token.NewMatchSet(specific)

	if !set.Matches("SarvajñaGPT - Microsoft Edge") {
		t.Error("Match should be diacritic-insensitive on the candidate side")
	}
}

func TestMatchSetEmpty(t *testing.T) {
	var set token.MatchSet
	if set.Matches("anything") {
		t.Error("Empty set must not match")
	}
}

func TestMatchSetAnyIn(t *testing.T) {
	specific, _ := token.Classify([]string{"report"}, nil)
	set := token.NewMatchSet(specific)

	if !set.AnyIn("Untitled | report.docx | Browser") {
		t.Error("AnyIn should find token in concatenated names")
	}
	if set.AnyIn("Untitled | Browser") {
		t.Error("AnyIn found a token that is not there")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
