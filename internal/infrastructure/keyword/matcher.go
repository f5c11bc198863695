package keyword

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// Matcher finds whole-word occurrences of a fixed phrase list. Aho-Corasick
// narrows the candidates; each candidate is then checked on word boundaries
// so "ai" does not hit "said".
type Matcher struct {
	words []string
	ac    *ahocorasick.Matcher
}

// NewMatcher lower-cases and de-duplicates words.
func NewMatcher(words []string) *Matcher {
	m := &Matcher{words: dedupe(normalize(words))}
	if len(m.words) > 0 {
		m.ac = ahocorasick.NewStringMatcher(m.words)
	}
	return m
}

// Words returns the phrase list.
func (m *Matcher) Words() []string {
	return m.words
}

// Hits returns the distinct phrases found in lowered text, in list order.
// text must already be lower-cased.
func (m *Matcher) Hits(text string) []string {
	if m.ac == nil || text == "" {
		return nil
	}
	found := make(map[int]struct{})
	for _, i := range m.ac.MatchThreadSafe([]byte(text)) {
		if containsWord(text, m.words[i]) {
			found[i] = struct{}{}
		}
	}
	out := make([]string, 0, len(found))
	for i, w := range m.words {
		if _, ok := found[i]; ok {
			out = append(out, w)
		}
	}
	return out
}

// Count is len(Hits(text)).
func (m *Matcher) Count(text string) int {
	return len(m.Hits(text))
}

func containsWord(text, word string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
