package pattern

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"github.com/harrison/pilot/internal/models"
)

// Signature derives the deterministic pattern-store key for a step-shaped
// problem: the normalized description, the action type, and the sorted
// context fields, hashed together. Two requests that differ only in wording
// order or stopwords map to the same signature.
func Signature(description string, actionType models.ActionType, context map[string]string) string {
	var builder strings.Builder
	builder.WriteString(Normalize(description))
	builder.WriteString("\n")
	builder.WriteString(string(actionType))
	builder.WriteString("\n")

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(context[k])
		builder.WriteString("\n")
	}

	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}

// Normalize applies the normalization pipeline used for both signatures and
// token similarity: lowercase, strip punctuation, drop stopwords, sort words.
func Normalize(input string) string {
	words := Tokenize(input)
	sort.Strings(words)
	return strings.Join(words, " ")
}

// Tokenize splits input into lowercase alphanumeric tokens with stopwords
// removed. Token order is preserved.
func Tokenize(input string) []string {
	lower := strings.ToLower(input)

	var cleaned strings.Builder
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			cleaned.WriteRune(r)
		} else {
			cleaned.WriteRune(' ')
		}
	}

	words := strings.Fields(cleaned.String())
	filtered := make([]string, 0, len(words))
	for _, w := range words {
		if !stopwords[w] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// jaccard computes token-set similarity between two descriptions in [0,1].
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(s) {
		set[tok] = true
	}
	return set
}

var stopwords = buildStopwords()

func buildStopwords() map[string]bool {
	words := []string{
		"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "must", "shall", "can", "need",
		"to", "of", "in", "for", "on", "with", "at", "by", "from", "as",
		"into", "through", "during", "before", "after", "about",
		"and", "but", "or", "nor", "so", "yet", "both", "either", "neither",
		"not", "only", "also", "just", "than", "too", "very",
		"this", "that", "these", "those", "it", "its",
		"i", "me", "my", "we", "us", "our", "you", "your",
		"all", "each", "every", "any", "some", "no", "none",
	}

	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
