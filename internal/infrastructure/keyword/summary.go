package keyword

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Summarize builds an extractive summary: sentences are ranked by keyword
// hits, with a bonus for the first three, and the best are joined until
// maxLen runes would be exceeded.
func Summarize(text string, keywords []string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultSummaryLength
	}

	sentences := strings.Split(text, ". ")
	if len(sentences) <= 2 {
		return clip(text, maxLen)
	}

	lowered := normalize(keywords)
	type scored struct {
		score    float64
		sentence string
	}
	ranked := make([]scored, 0, len(sentences))
	for i, sentence := range sentences {
		var score float64
		lower := strings.ToLower(sentence)
		for _, kw := range lowered {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if i < 3 {
			score += 0.5
		}
		ranked = append(ranked, scored{score: score, sentence: strings.TrimSuffix(sentence, ".")})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var (
		parts  []string
		length int
	)
	for _, r := range ranked {
		n := utf8.RuneCountInString(r.sentence)
		if length+n > maxLen {
			break
		}
		parts = append(parts, r.sentence)
		length += n
	}
	if len(parts) == 0 {
		return clip(text, maxLen)
	}
	return strings.Join(parts, ". ") + "."
}

func clip(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}
