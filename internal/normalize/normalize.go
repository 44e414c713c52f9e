// Package normalize repairs transport artifacts and known terminology
// violations in raw model output before it is validated.
//
// Normalization is idempotent: Normalize(Normalize(x)) == Normalize(x). The
// replacement table is checked at construction so that no replacement value
// can produce text another rule would rewrite again.
package normalize

import (
	"fmt"
	"strings"
)

// Replacement maps one forbidden term to its mandated spelling.
type Replacement struct {
	From string
	To   string
}

// DefaultReplacements repairs the loanwords the catalog forbids. Longer
// (plural) forms come first so they win over their singular prefixes.
var DefaultReplacements = []Replacement{
	{From: "Charms", To: "Dijes"},
	{From: "charms", To: "dijes"},
	{From: "CHARMS", To: "DIJES"},
	{From: "Charm", To: "Dije"},
	{From: "charm", To: "dije"},
	{From: "CHARM", To: "DIJE"},
	{From: "Bisutería", To: "Bijouterie"},
	{From: "bisutería", To: "bijouterie"},
}

const fence = "```"

// Normalizer strips code fences and applies an ordered replacement table.
// It is immutable and safe for concurrent use.
type Normalizer struct {
	replacer *strings.Replacer
	table    []Replacement
}

// New validates the replacement table and builds a Normalizer. An empty
// table disables substitution.
func New(table []Replacement) (*Normalizer, error) {
	pairs := make([]string, 0, len(table)*2)
	seen := make(map[string]struct{}, len(table))
	for i, r := range table {
		if r.From == "" {
			return nil, fmt.Errorf("replacement %d: empty source term", i)
		}
		if _, ok := seen[r.From]; ok {
			return nil, fmt.Errorf("replacement %d: duplicate source term %q", i, r.From)
		}
		seen[r.From] = struct{}{}
		if r.To == "" || strings.TrimSpace(r.To) != r.To {
			return nil, fmt.Errorf("replacement %q: target must be non-empty without surrounding whitespace", r.From)
		}
		if strings.Contains(r.To, "`") {
			return nil, fmt.Errorf("replacement %q: target must not contain backticks", r.From)
		}
		if strings.Contains(r.From, "`") {
			return nil, fmt.Errorf("replacement %q: source must not contain backticks", r.From)
		}
		pairs = append(pairs, r.From, r.To)
	}
	for _, r := range table {
		for _, other := range table {
			if strings.Contains(r.To, other.From) {
				return nil, fmt.Errorf("replacement %q: target %q contains source term %q", r.From, r.To, other.From)
			}
			if overlaps(r.To, other.From) {
				return nil, fmt.Errorf("replacement %q: target %q can form source term %q with adjacent text", r.From, r.To, other.From)
			}
		}
	}
	n := &Normalizer{table: append([]Replacement(nil), table...)}
	if len(pairs) > 0 {
		n.replacer = strings.NewReplacer(pairs...)
	}
	return n, nil
}

// Default returns the Normalizer for DefaultReplacements.
func Default() *Normalizer {
	n, err := New(DefaultReplacements)
	if err != nil {
		panic(fmt.Sprintf("default replacements are invalid: %v", err))
	}
	return n
}

// Normalize strips a leading and trailing code fence, trims surrounding
// whitespace, and applies the replacement table.
func (n *Normalizer) Normalize(text string) string {
	text = StripFences(text)
	if n == nil || n.replacer == nil {
		return text
	}
	return n.replacer.Replace(text)
}

// Table returns a copy of the replacement table.
func (n *Normalizer) Table() []Replacement {
	return append([]Replacement(nil), n.table...)
}

// StripFences removes an opening fence marker with its optional language tag
// and a closing fence, repeating until neither is present, and trims the
// result. Content sharing a line with the opening marker is kept.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	for {
		stripped := text
		if strings.HasPrefix(stripped, fence) {
			first, rest, multiline := strings.Cut(stripped, "\n")
			first = strings.TrimLeft(first, "`")
			switch {
			case !multiline:
				stripped = dropInlineTag(first)
			case isLangTag(strings.TrimSpace(first)):
				stripped = rest
			default:
				stripped = dropInlineTag(first) + "\n" + rest
			}
		}
		stripped = strings.TrimSpace(stripped)
		if strings.HasSuffix(stripped, fence) {
			stripped = strings.TrimRight(stripped, "`")
		}
		stripped = strings.TrimSpace(stripped)
		if stripped == text {
			return text
		}
		text = stripped
	}
}

const langTagChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+-_."

// isLangTag reports whether s is empty or a bare fence annotation like "json".
func isLangTag(s string) bool {
	return strings.Trim(s, langTagChars) == ""
}

// dropInlineTag removes a language tag from a single-line fence body such as
// "json{...}" but leaves text that merely starts with letters alone.
func dropInlineTag(s string) string {
	rest := strings.TrimSpace(strings.TrimLeft(s, langTagChars))
	if strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
		return rest
	}
	return s
}

// overlaps reports whether a replacement target could combine with
// neighbouring text into source term from: target's edges overlapping
// from's edges, or from embedding target with text on either side.
func overlaps(target, from string) bool {
	if len(from) > len(target) && strings.Contains(from, target) {
		return true
	}
	for k := 1; k < len(from) && k <= len(target); k++ {
		if strings.HasSuffix(target, from[:k]) || strings.HasPrefix(target, from[len(from)-k:]) {
			return true
		}
	}
	return false
}
