package domain

import "strings"

// NormalizeSymbols uppercases and trims each symbol, drops blanks and
// duplicates, and keeps first-seen order.
func NormalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ParseSymbolList splits a comma separated query value into normalized symbols.
func ParseSymbolList(raw string) []string {
	return NormalizeSymbols(strings.Split(raw, ","))
}
