package sanitize

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// snippetRunes bounds the context captured on each side of a link.
const snippetRunes = 40

// ExtractLinks returns the URLs referenced by s in order of first appearance,
// deduplicated by normalized URL. Offsets refer to s.
func ExtractLinks(s string) []domain.Link {
	spans := urlSpans(s)
	links := make([]domain.Link, 0, len(spans))
	seen := make(map[string]struct{}, len(spans))
	for _, sp := range spans {
		text := s[sp[0]:sp[1]]
		href := normalizeURL(text)
		if href == "" {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}
		links = append(links, domain.Link{
			Text:    text,
			URL:     href,
			Start:   sp[0],
			End:     sp[1],
			Context: snippet(s, sp[0], sp[1]),
		})
	}
	return links
}

// URLs is a convenience wrapper returning only the hrefs of ExtractLinks.
func URLs(s string) []string {
	links := ExtractLinks(s)
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.URL
	}
	return out
}

// urlSpans returns the trimmed byte spans of every URL-shaped substring.
func urlSpans(s string) [][]int {
	if !strings.Contains(s, "://") && !strings.Contains(strings.ToLower(s), "www.") {
		return nil
	}
	matches := urlPattern.FindAllStringIndex(s, -1)
	spans := matches[:0]
	for _, m := range matches {
		end := m[0] + len(trimURL(s[m[0]:m[1]]))
		if end > m[0] {
			spans = append(spans, []int{m[0], end})
		}
	}
	return spans
}

// trimURL strips trailing sentence punctuation and unbalanced closing
// parentheses that the greedy pattern swallowed.
func trimURL(u string) string {
	for u != "" {
		last := u[len(u)-1]
		switch {
		case strings.IndexByte(trailingURLPunct, last) >= 0:
			u = u[:len(u)-1]
		case last == ')' && strings.Count(u, "(") < strings.Count(u, ")"):
			u = u[:len(u)-1]
		default:
			return u
		}
	}
	return u
}

// normalizeURL returns the href for a matched URL, or "" if the match has no
// usable host.
func normalizeURL(text string) string {
	href := text
	if !strings.Contains(href, "://") {
		href = "https://" + href
	}
	parsed, err := url.Parse(href)
	if err != nil || parsed.Host == "" || !strings.ContainsAny(parsed.Hostname(), "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789") {
		return ""
	}
	return href
}

// snippet returns up to snippetRunes runes of prose on each side of [start,end),
// with whitespace collapsed to single spaces.
func snippet(s string, start, end int) string {
	from := start
	for n := 0; n < snippetRunes && from > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(s[:from])
		from -= size
	}
	to := end
	for n := 0; n < snippetRunes && to < len(s); n++ {
		_, size := utf8.DecodeRuneInString(s[to:])
		to += size
	}
	return strings.Join(strings.Fields(s[from:to]), " ")
}
