// Package sanitize turns raw model output into user-facing prose.
//
// Clean removes backend-injected citation markers, repairs the
// space-before-period artifacts their removal (or the model) leaves behind,
// and extracts the URLs the answer references. Everything else is preserved
// byte for byte: numbers, currency amounts, proper nouns, parenthetical prose
// and the URLs themselves stay in the text.
//
// Recognized citation families:
//
//	【3:0†source】, 【message_idx:search_0†source】   opaque, may span lines
//	[3:3†source], [anything†anything]                 dagger brackets
//	[1], [^2], [1, 2], [1-3], [3:3]                   numeric brackets
//	(2), (3:1), (4†source)                            digit-only parentheticals
//
// A digit-only parenthetical directly attached to a word, as in f(2), is not a
// citation unless it carries a dagger. Numeric brackets and parentheticals inside a URL are never touched.
//
// Clean is applied to a fixpoint, so Clean(Clean(s)) == Clean(s) for every s,
// and it never panics, including on invalid UTF-8.
package sanitize

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// Clean returns the sanitized text of raw along with the links found in raw.
// Links are ordered by first appearance and deduplicated by URL.
func Clean(raw string) (string, []domain.Link) {
	return Text(raw), ExtractLinks(raw)
}

// Text returns only the sanitized text of raw.
func Text(raw string) string {
	s := raw
	// Every pass that changes s makes it strictly shorter, so this terminates.
	for {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
}

// HasCitationResidue reports whether s still carries anything that looks like
// a citation marker: a recognized marker, or a stray 【, 】 or † left by a
// malformed one. Output of Text only trips it when the input held a
// malformed marker such as an unclosed 【.
func HasCitationResidue(s string) bool {
	if strings.ContainsAny(s, residueRunes) {
		return true
	}
	return len(opaqueSpans(s)) > 0 || len(inlineSpans(s)) > 0
}

// Markers returns every recognized citation marker in s in order of
// appearance. It is used for diagnostics.
func Markers(s string) []string {
	spans := append(opaqueSpans(s), inlineSpans(s)...)
	slices.SortFunc(spans, func(a, b []int) int { return a[0] - b[0] })
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, s[sp[0]:sp[1]])
	}
	return out
}

func pass(s string) string {
	s = deleteSpans(s, opaqueSpans(s))
	s = deleteSpans(s, inlineSpans(s))
	return repairSpaceBeforePeriod(s)
}

// opaqueSpans finds citation spans whose content is discarded wholesale,
// even when it contains URLs or newlines.
func opaqueSpans(s string) [][]int {
	if !strings.ContainsAny(s, "【†") {
		return nil
	}
	spans := opaqueCitation.FindAllStringIndex(s, -1)
	return append(spans, daggerCitation.FindAllStringIndex(s, -1)...)
}

// inlineSpans finds numeric citation markers outside URLs.
func inlineSpans(s string) [][]int {
	if !strings.ContainsAny(s, "[(") {
		return nil
	}
	urls := urlSpans(s)
	var spans [][]int
	for _, m := range numericCitation.FindAllStringIndex(s, -1) {
		if !overlapsAny(m, urls) {
			spans = append(spans, m)
		}
	}
	for _, m := range digitParenCitation.FindAllStringIndex(s, -1) {
		// A dagger never occurs in a URL or in prose, so such a marker is
		// removed wherever it sits.
		dagger := strings.Contains(s[m[0]:m[1]], "†")
		if !dagger && (overlapsAny(m, urls) || attachedToWord(s, m[0])) {
			continue
		}
		spans = append(spans, m)
	}
	return spans
}

func attachedToWord(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func overlapsAny(m []int, spans [][]int) bool {
	for _, sp := range spans {
		if m[0] < sp[1] && sp[0] < m[1] {
			return true
		}
	}
	return false
}

// mergeSpans sorts spans and joins those that overlap or are separated only
// by spaces, so consecutive markers are deleted as one cluster.
func mergeSpans(s string, spans [][]int) [][]int {
	slices.SortFunc(spans, func(a, b []int) int { return a[0] - b[0] })
	merged := [][]int{{spans[0][0], spans[0][1]}}
	for _, sp := range spans[1:] {
		last := merged[len(merged)-1]
		if sp[0] <= last[1] || strings.Trim(s[last[1]:sp[0]], " ") == "" {
			last[1] = max(last[1], sp[1])
			continue
		}
		merged = append(merged, []int{sp[0], sp[1]})
	}
	return merged
}

// deleteSpans removes spans from s. The spaces around a deleted cluster are
// merged into one, or dropped entirely at a line boundary or before closing
// punctuation.
func deleteSpans(s string, spans [][]int) string {
	if len(spans) == 0 {
		return s
	}
	spans = mergeSpans(s, spans)

	var b strings.Builder
	b.Grow(len(s))
	cursor := 0
	for _, sp := range spans {
		start, end := sp[0], sp[1]
		left := start
		for left > cursor && s[left-1] == ' ' {
			left--
		}
		right := end
		for right < len(s) && s[right] == ' ' {
			right++
		}

		b.WriteString(s[cursor:left])
		atLineStart := left == 0 || s[left-1] == '\n'
		beforeBoundary := right == len(s) || s[right] == '\n' || s[right] == '\r' ||
			strings.IndexByte(boundaryPunct, s[right]) >= 0
		switch {
		case atLineStart || beforeBoundary:
		case left < start && right > end:
			b.WriteByte(' ')
		default:
			b.WriteString(s[left:start])
			b.WriteString(s[end:right])
		}
		cursor = right
	}
	b.WriteString(s[cursor:])
	return b.String()
}

// repairSpaceBeforePeriod drops runs of spaces that directly precede a
// sentence-terminal period. ".NET" and ".5" are not terminal.
func repairSpaceBeforePeriod(s string) string {
	if !strings.Contains(s, " .") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != ' ' {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == ' ' {
			j++
		}
		if j < len(s) && s[j] == '.' && terminalPeriod(s, j) {
			i = j
			continue
		}
		b.WriteString(s[i:j])
		i = j
	}
	return b.String()
}

// HasSpaceBeforePeriod reports whether s contains a space directly followed
// by a sentence-terminal period.
func HasSpaceBeforePeriod(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] == '.' && s[i-1] == ' ' && terminalPeriod(s, i) {
			return true
		}
	}
	return false
}

func terminalPeriod(s string, i int) bool {
	if i+1 >= len(s) {
		return true
	}
	switch s[i+1] {
	case ' ', '\t', '\n', '\r', '.', '"', '\'', ')', ']', '}':
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i+1:])
	return strings.ContainsRune("”’»」』", r)
}
