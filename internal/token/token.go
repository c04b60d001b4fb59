// Package token canonicalizes candidate-identification hints and classifies
// them into specific (document/file names) and generic (application-class
// labels) pools. All matching rules against accessibility names live here so
// the tie-break behavior is defined once and testable without UI simulation.
package token

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes file/document tokens from application-class labels.
type Kind int

const (
	// Specific marks a token naming a particular document or file.
	Specific Kind = iota
	// Generic marks an application-class label such as "browser".
	Generic
)

// Token is a normalized hint string with its classification.
type Token struct {
	Text string
	Kind Kind
}

// Group is a named vocabulary of generic application labels. A group only
// contributes to the generic pool when the caller's raw hints intersect it,
// which prevents a document snap from accidentally matching an unrelated
// application class.
type Group struct {
	Name   string
	Labels []string
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize strips diacritics, lowercases, collapses non-alphanumeric runs to
// single spaces, and trims. It is idempotent: Normalize(Normalize(s)) ==
// Normalize(s).
func Normalize(s string) string {
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		} else {
			space = true
		}
	}
	return b.String()
}

// Classify splits raw hints into specific and generic token pools.
//
// A hint is generic iff its normalized form exactly matches a label of one of
// the supplied groups; that group's full label set then joins the generic
// pool. Specific hints containing a dot additionally yield the pre-extension
// stem, so "report.docx" matches tiles titled either way. Both pools are
// deduplicated case-insensitively, preserving first-seen order.
func Classify(raw []string, groups []Group) (specific, generic []Token) {
	label := func(n string) (Group, bool) {
		for _, g := range groups {
			for _, l := range g.Labels {
				if Normalize(l) == n {
					return g, true
				}
			}
		}
		return Group{}, false
	}

	seen := make(map[string]bool)
	genericSeen := make(map[string]bool)
	addGeneric := func(n string) {
		if n == "" || genericSeen[n] {
			return
		}
		genericSeen[n] = true
		generic = append(generic, Token{Text: n, Kind: Generic})
	}
	addSpecific := func(n string) {
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		if _, isLabel := label(n); isLabel {
			return
		}
		if !hasLetter(n) || len(n) <= 2 {
			return
		}
		specific = append(specific, Token{Text: n, Kind: Specific})
	}

	for _, r := range raw {
		n := Normalize(r)
		if n == "" {
			continue
		}
		if g, ok := label(n); ok {
			// The hint activates its whole group: a caller asking for
			// "edge" should also match a tile named "Microsoft Edge".
			if !seen[n] {
				seen[n] = true
			}
			for _, l := range g.Labels {
				addGeneric(Normalize(l))
			}
			continue
		}
		if seen[n] {
			continue
		}
		addSpecific(n)
		// A dotted hint is most likely a filename; picker tiles often show
		// only the stem, so match on both forms.
		if dot := strings.LastIndexByte(r, '.'); dot > 0 && dot < len(r)-1 {
			addSpecific(Normalize(r[:dot]))
		}
	}
	return specific, generic
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Texts extracts the normalized strings from a token slice.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

// MatchSet is the active token set for one matching phase.
//
// The tie-break rule: with two or fewer tokens every token must appear in the
// candidate name (precision when the caller gave narrow hints); with more
// than two, any single containment suffices (recall when the hints are
// broad).
type MatchSet struct {
	tokens []string
}

// NewMatchSet builds a match set from already-classified tokens.
func NewMatchSet(tokens ...[]Token) MatchSet {
	var texts []string
	seen := make(map[string]bool)
	for _, group := range tokens {
		for _, t := range group {
			if t.Text == "" || seen[t.Text] {
				continue
			}
			seen[t.Text] = true
			texts = append(texts, t.Text)
		}
	}
	return MatchSet{tokens: texts}
}

// Empty reports whether the set has no tokens.
func (m MatchSet) Empty() bool { return len(m.tokens) == 0 }

// Len returns the number of tokens in the set.
func (m MatchSet) Len() int { return len(m.tokens) }

// Tokens returns a copy of the active token texts.
func (m MatchSet) Tokens() []string {
	out := make([]string, len(m.tokens))
	copy(out, m.tokens)
	return out
}

// Matches applies the containment tie-break rule to a raw candidate name.
func (m MatchSet) Matches(name string) bool {
	if len(m.tokens) == 0 || name == "" {
		return false
	}
	n := Normalize(name)
	if n == "" {
		return false
	}
	if len(m.tokens) <= 2 {
		for _, t := range m.tokens {
			if !strings.Contains(n, t) {
				return false
			}
		}
		return true
	}
	for _, t := range m.tokens {
		if strings.Contains(n, t) {
			return true
		}
	}
	return false
}

// AnyIn reports whether any token of the set appears in the given text. Used
// by the early-repetition break: if none of the tokens occur anywhere in the
// concatenated observed names, further cycling cannot produce a match.
func (m MatchSet) AnyIn(text string) bool {
	n := Normalize(text)
	for _, t := range m.tokens {
		if strings.Contains(n, t) {
			return true
		}
	}
	return false
}
