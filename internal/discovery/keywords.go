// Package discovery finds work items related to a source item by fanning
// WIQL queries out across teams and date windows.
package discovery

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultKeywordLimit keeps the OR-ed CONTAINS group well under WIQL's length limit.
	DefaultKeywordLimit = 4

	minMeaningfulTitleLen = 10
	minKeywordLen         = 3
)

// stopWords are dropped from titles before keyword selection. Generic work item
// labels are included so that "Bug: fix the bug" yields nothing.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {},
	"but": {}, "by": {}, "can": {}, "cannot": {}, "could": {}, "does": {}, "doesn": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "not": {}, "of": {}, "on": {}, "onto": {}, "or": {}, "should": {},
	"the": {}, "that": {}, "this": {}, "these": {}, "those": {}, "to": {}, "was": {},
	"were": {}, "when": {}, "while": {}, "with": {}, "without": {}, "via": {}, "after": {},
	"before": {}, "all": {}, "any": {}, "some": {}, "new": {}, "need": {}, "needs": {},
	"fix": {}, "fixed": {}, "fixes": {}, "add": {}, "added": {}, "update": {}, "updated": {},
	"make": {}, "use": {}, "using": {}, "work": {}, "item": {}, "items": {},

	// generic work item labels
	"bug": {}, "bugs": {}, "task": {}, "tasks": {}, "story": {}, "stories": {},
	"feature": {}, "epic": {}, "issue": {}, "issues": {}, "defect": {},
}

// genericPhrases are multi-word labels skipped as a unit.
var genericPhrases = [][]string{
	{"user", "story"},
	{"product", "backlog", "item"},
}

// ExtractKeywords returns up to limit salient tokens from a title, in order of
// appearance. Matching against stop words and duplicates is case-insensitive;
// the first occurrence keeps its original casing. A limit of zero or less uses
// DefaultKeywordLimit.
func ExtractKeywords(title string, limit int) []string {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	tokens := salientTokens(title)
	if len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens
}

// IsMeaningfulTitle reports whether a title is specific enough for a keyword
// search. Short titles and titles made only of generic labels and filler are not.
func IsMeaningfulTitle(title string) bool {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < minMeaningfulTitleLen {
		return false
	}
	return len(salientTokens(title)) > 0
}

// KeywordHits returns the keywords contained in text, ignoring case.
func KeywordHits(keywords []string, text string) []string {
	if len(keywords) == 0 || text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}

func salientTokens(title string) []string {
	tokens := []string{}
	fields := strings.FieldsFunc(title, isSeparator)

	seen := make(map[string]struct{})
	for i := 0; i < len(fields); i++ {
		if n := genericPhraseAt(fields, i); n > 0 {
			i += n - 1
			continue
		}

		token := strings.Trim(fields[i], "-_")
		if utf8.RuneCountInString(token) < minKeywordLen || isNumeric(token) {
			continue
		}
		key := strings.ToLower(token)
		if _, stop := stopWords[key]; stop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// genericPhraseAt returns the length of the generic phrase starting at fields[i], or zero.
func genericPhraseAt(fields []string, i int) int {
	for _, phrase := range genericPhrases {
		if i+len(phrase) > len(fields) {
			continue
		}
		match := true
		for j, word := range phrase {
			if !strings.EqualFold(fields[i+j], word) {
				match = false
				break
			}
		}
		if match {
			return len(phrase)
		}
	}
	return 0
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
