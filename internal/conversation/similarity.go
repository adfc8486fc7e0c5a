package conversation

import (
	"strings"
	"unicode"
)

// RepetitionThreshold is the share of significant words two replies may
// have in common before the newer one counts as a repeat.
const RepetitionThreshold = 0.8

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "you": true, "your": true, "are": true, "with": true,
	"that": true, "this": true, "can": true, "could": true, "would": true, "will": true, "what": true,
	"which": true, "when": true, "where": true, "have": true, "has": true, "was": true, "were": true,
	"our": true, "from": true, "let": true, "me": true, "know": true, "please": true, "tell": true,
	"like": true, "about": true, "there": true, "any": true, "some": true, "its": true, "it's": true,
	"i'll": true, "i'm": true, "just": true, "also": true, "into": true, "been": true, "how": true,
}

// significantWords lower-cases text and drops stop words and short tokens.
func significantWords(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len(w) < 3 || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// Similarity is the number of shared significant words divided by the size
// of the larger word set.
func Similarity(a, b string) float64 {
	wa, wb := significantWords(a), significantWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
			return 1
		}
		return 0
	}
	shared := 0
	for w := range wa {
		if wb[w] {
			shared++
		}
	}
	larger := len(wa)
	if len(wb) > larger {
		larger = len(wb)
	}
	return float64(shared) / float64(larger)
}

// maxSimilarity returns the highest similarity between candidate and any
// of recent.
func maxSimilarity(candidate string, recent []string) float64 {
	highest := 0.0
	for _, r := range recent {
		if s := Similarity(candidate, r); s > highest {
			highest = s
		}
	}
	return highest
}

// IsRepetitive reports whether candidate is too close to a recent reply.
func IsRepetitive(candidate string, recent []string) bool {
	return maxSimilarity(candidate, recent) >= RepetitionThreshold
}
