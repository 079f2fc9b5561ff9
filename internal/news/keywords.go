package news

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// AIKeywords is the fixed bilingual topic list. Stems are matched as
// case-insensitive substrings anywhere in the text, not on word boundaries:
// the loose match ("дз", "модель") trades false positives for recall.
var AIKeywords = []string{
	// ru
	"искусственный интеллект", "нейросет", "дз", "машинное обучение", "глубокое обучение",
	"большая языковая модель", "llm", "модель", "генеративн", "ai",
	// en
	"artificial intelligence", "neural", "machine learning", "deep learning",
	"large language model", "generative", "foundation model",
}

// KeywordMatcher answers "does this text mention the topic" over a fixed
// keyword set. It builds an Aho-Corasick automaton once so a run over
// hundreds of entries scans each text in a single pass; the semantics are
// identical to checking strings.Contains for every keyword.
type KeywordMatcher struct {
	matcher *ahocorasick.Matcher
}

func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	if len(lowered) == 0 {
		return &KeywordMatcher{}
	}
	return &KeywordMatcher{matcher: ahocorasick.NewStringMatcher(lowered)}
}

// Matches reports whether any keyword occurs in text as a case-insensitive
// substring.
func (m *KeywordMatcher) Matches(text string) bool {
	if m == nil || m.matcher == nil || text == "" {
		return false
	}
	return len(m.matcher.Match([]byte(strings.ToLower(text)))) > 0
}
