package sanitize

import "regexp"

var (
	// opaqueCitation matches full-width citation spans such as
	// 【3:0†source】 or 【message_idx:search_0†source】. The content is never
	// prose, may include newlines, and is deleted brackets included.
	opaqueCitation = regexp.MustCompile(`【[^】]*】`)

	// daggerCitation matches square-bracket spans carrying a dagger marker,
	// e.g. [3:3†source] or [message_idx:search_0†source].
	daggerCitation = regexp.MustCompile(`\[[^\[\]]*†[^\[\]]*\]`)

	// numericCitation matches numeric bracket citations: [1], [^2], [1, 2],
	// [1-3], [3:3].
	numericCitation = regexp.MustCompile(`\[\^?\d+(?:\s*[,:\-–]\s*\d+)*\]`)

	// digitParenCitation matches parentheticals holding only digits,
	// optionally colon-separated and optionally with a †source suffix.
	digitParenCitation = regexp.MustCompile(`\(\d+(?::\d+)*(?:†source)?\)`)

	// urlPattern matches scheme-qualified URLs and bare www. domains using
	// only RFC 3986 characters, so adjacent non-ASCII text such as full-width
	// brackets or daggers always terminates a match.
	urlPattern = regexp.MustCompile(`(?i)\b(?:https?://[a-z0-9\-._~:/?#@!$&'()*+,;=%]+|www\.[a-z0-9\-]+\.[a-z0-9\-._~:/?#@!$&'()*+,;=%]+)`)
)

// residueRunes never appear in a clean answer.
const residueRunes = "【】†"

// trailingURLPunct is stripped from the end of a matched URL.
const trailingURLPunct = ".,;:!?'*"

// boundaryPunct are characters before which a deleted citation leaves no space.
const boundaryPunct = ".,;:!?)]}"
