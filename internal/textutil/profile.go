package textutil

import (
	"math"
	"regexp"
)

var wordSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Profile is a bag of character trigrams over the folded words of a string.
// Each word is padded with one space on both sides, so "rojo" yields
// " ro", "roj", "ojo" and "jo ".
type Profile struct {
	grams map[string]float64
	norm  float64
}

// NewProfile builds the trigram profile of text, or nil when text has no
// letters or digits.
func NewProfile(text string) *Profile {
	words := Words(text)
	if len(words) == 0 {
		return nil
	}
	grams := make(map[string]float64)
	for _, word := range words {
		padded := " " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			grams[padded[i:i+3]]++
		}
	}
	var sum float64
	for _, n := range grams {
		sum += n * n
	}
	return &Profile{grams: grams, norm: math.Sqrt(sum)}
}

// Words folds text and splits it on anything that is not [a-z0-9].
func Words(text string) []string {
	var words []string
	for _, w := range wordSplitPattern.Split(Fold(text), -1) {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Len returns the number of distinct trigrams.
func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.grams)
}
