package domain

// Link is a reference extracted from an answer.
type Link struct {
	// Text is the literal matched text as it appeared in the raw answer.
	Text string `json:"text" yaml:"text"`

	// URL is the normalized href. Bare www. domains gain an https:// scheme.
	URL string `json:"url" yaml:"url"`

	// Start and End are byte offsets of Text in the raw answer. Both are -1
	// for sources reported by the backend out-of-band.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Context is a short snippet of the surrounding prose.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// External reports whether the link came from backend metadata rather than
// the answer text.
func (l Link) External() bool {
	return l.Start < 0
}

// SourceLink builds a Link for an out-of-band grounding source.
func SourceLink(url string) Link {
	return Link{Text: url, URL: url, Start: -1, End: -1}
}

// MergeLinks appends extra to base, skipping URLs already present.
// Order of first appearance is preserved and base is not modified.
func MergeLinks(base []Link, extra ...Link) []Link {
	out := make([]Link, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, group := range [][]Link{base, extra} {
		for _, l := range group {
			if l.URL == "" {
				continue
			}
			if _, ok := seen[l.URL]; ok {
				continue
			}
			seen[l.URL] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}
