package textutil

// MinSuggestScore is the similarity below which Nearest suggests nothing.
const MinSuggestScore = 0.4

// Similarity is the cosine of the angle between two profiles, in [0, 1].
func Similarity(a, b *Profile) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	if len(b.grams) < len(a.grams) {
		a, b = b, a
	}
	var dot float64
	for gram, n := range a.grams {
		dot += n * b.grams[gram]
	}
	return dot / (a.norm * b.norm)
}

// Nearest returns the candidate most similar to value, or "" when none
// reaches MinSuggestScore. Ties keep the earlier candidate.
func Nearest(value string, candidates []string) string {
	target := NewProfile(value)
	if target == nil {
		return ""
	}
	best, bestScore := "", MinSuggestScore
	for _, candidate := range candidates {
		if score := Similarity(target, NewProfile(candidate)); score >= bestScore && (best == "" || score > bestScore) {
			best, bestScore = candidate, score
		}
	}
	return best
}
