// Package textutil provides text folding and fuzzy matching helpers.
//
// Fold maps a string to a case- and accent-insensitive comparison key, which
// the vocabulary uses to repair trivially misspelled classification values.
// Profiles are character-trigram bags; Nearest uses their cosine similarity
// to suggest the closest vocabulary entry for a value that could not be
// repaired, so "Plateada" points at "Plateado".
package textutil
