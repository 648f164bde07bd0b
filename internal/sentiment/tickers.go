package sentiment

import (
	"strings"
	"unicode"
)

// Tickers is the tracked-instrument set. Lookup is exact on whole tokens, so
// "AMC" is not found inside "AMCX" and "META" is not found in "METAL".
type Tickers struct {
	order []string
	set   map[string]bool
}

// NewTickers builds a tracked set; symbols are upper-cased and de-duplicated,
// keeping first-seen order.
func NewTickers(symbols []string) *Tickers {
	t := &Tickers{set: make(map[string]bool, len(symbols))}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || t.set[s] {
			continue
		}
		t.set[s] = true
		t.order = append(t.order, s)
	}
	return t
}

// Symbols returns the tracked symbols in configured order.
func (t *Tickers) Symbols() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Tracked reports whether symbol is in the set.
func (t *Tickers) Tracked(symbol string) bool { return t.set[symbol] }

// Identify returns the first tracked ticker, in configured order, that occurs
// as a token of text. Tokens split on anything that is not a letter or digit;
// a leading "$" cashtag is accepted. Matching is case-sensitive.
func (t *Tickers) Identify(text string) (string, bool) {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	}) {
		tokens[tok] = true
	}
	for _, s := range t.order {
		if tokens[s] {
			return s, true
		}
	}
	return "", false
}

// First returns the first tracked symbol from candidates, in candidate order.
func (t *Tickers) First(candidates []string) (string, bool) {
	for _, c := range candidates {
		c = strings.ToUpper(strings.TrimSpace(c))
		if t.set[c] {
			return c, true
		}
	}
	return "", false
}
