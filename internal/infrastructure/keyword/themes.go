package keyword

// Theme names a topic and the phrases that signal it.
type Theme struct {
	Name    string
	Phrases []string
}

// Themes reports which named themes a text touches.
type Themes struct {
	names  []string
	owners map[string][]int
	match  *Matcher
}

// NewThemes indexes every phrase of every theme in one matcher.
func NewThemes(themes []Theme) *Themes {
	t := &Themes{owners: make(map[string][]int)}
	var phrases []string
	for i, theme := range themes {
		t.names = append(t.names, theme.Name)
		for _, p := range normalize(theme.Phrases) {
			t.owners[p] = append(t.owners[p], i)
			phrases = append(phrases, p)
		}
	}
	t.match = NewMatcher(phrases)
	return t
}

// Find returns the themes present in lowered text, in declaration order.
func (t *Themes) Find(text string) []string {
	seen := make([]bool, len(t.names))
	for _, hit := range t.match.Hits(text) {
		for _, i := range t.owners[hit] {
			seen[i] = true
		}
	}
	var out []string
	for i, ok := range seen {
		if ok {
			out = append(out, t.names[i])
		}
	}
	return out
}

// DefaultThemes are the AI themes tracked per sector.
func DefaultThemes() *Themes {
	return NewThemes([]Theme{
		{"machine learning", []string{"machine learning", "ml", "deep learning"}},
		{"automation", []string{"automation", "automated", "robotic process"}},
		{"personalization", []string{"personalization", "personalized", "recommendation", "recommendations"}},
		{"fraud detection", []string{"fraud", "security", "risk management"}},
		{"customer service", []string{"customer service", "chatbot", "virtual assistant"}},
		{"content generation", []string{"content generation", "generative ai", "genai"}},
		{"predictive analytics", []string{"predictive", "forecasting", "analytics"}},
		{"computer vision", []string{"computer vision", "image recognition", "visual ai"}},
		{"natural language", []string{"nlp", "natural language", "text analysis"}},
		{"algorithmic trading", []string{"algorithmic trading", "trading algorithms", "fintech"}},
		{"vector databases", []string{"vector database", "pgvector", "embedding", "embeddings", "similarity search", "vector search"}},
		{"semantic search", []string{"semantic search", "vector similarity", "embedding search", "nearest neighbor"}},
	})
}

// MaturityLevels classifies an article as "advanced" or "basic" AI usage.
func MaturityLevels() *Themes {
	return NewThemes([]Theme{
		{"advanced", []string{"generative ai", "genai", "large language model", "large language models", "transformer", "neural network"}},
		{"basic", []string{"automation", "machine learning", "ai"}},
	})
}
