package categorization

import (
	"regexp"
	"strings"
)

var (
	storeNumberPattern = regexp.MustCompile(`#\d+|\bstore\s+\d+\b`)
	nonAlnumPattern    = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a raw transaction description for comparison:
// case-fold, drop store/location numbers ("#123", "store 123"), treat
// asterisk separators as spaces, strip everything but alphanumerics and
// spaces, collapse whitespace. Total function: any input yields a (possibly
// empty) string, and Normalize(Normalize(x)) == Normalize(x).
func Normalize(description string) string {
	if description == "" {
		return ""
	}

	s := strings.ToLower(description)
	s = strings.ReplaceAll(s, "*", " ")
	s = storeNumberPattern.ReplaceAllString(s, " ")
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// tokenize splits a normalized description into tokens.
func tokenize(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// significantTokens keeps tokens longer than two characters that are not
// stopwords. Shared by the TF-IDF vectorizer and the pattern learner.
func significantTokens(normalized string) []string {
	var out []string
	for _, tok := range tokenize(normalized) {
		if len(tok) <= 2 || stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// stopwords are high-frequency terms that carry no merchant signal.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"inc": true, "llc": true, "ltd": true, "corp": true, "com": true,
	"www": true, "card": true, "debit": true, "credit": true, "purchase": true,
	"payment": true, "pos": true, "online": true, "web": true, "recurring": true,
	"transaction": true, "transfer": true, "pending": true,
}
