package rank

import (
	"strings"

	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/textutil"
)

// SnippetLength caps the content snippet that gets highlighted, in
// runes.
const SnippetLength = 500

// Fragments holds the highlighted display fields of a result.
type Fragments struct {
	Subject    string `json:"subject"`
	Snippet    string `json:"snippet"`
	SenderName string `json:"sender_name"`
}

// Highlighter wraps matched query terms in marker strings. Terms are
// processed independently, one pass per term over the already-marked
// text; overlapping terms can therefore be wrapped twice. Callers
// that need non-overlapping marks must dedupe terms first.
type Highlighter struct {
	Prefix string
	Suffix string
}

// NewHighlighter creates a Highlighter with the default <mark> markers.
func NewHighlighter() *Highlighter {
	return &Highlighter{Prefix: "<mark>", Suffix: "</mark>"}
}

// Fragments highlights the subject, a truncated content snippet, and
// the sender name of an email. Content from older mailboxes can carry
// legacy encodings, so the snippet is re-encoded to UTF-8 first.
func (h *Highlighter) Fragments(e query.EmailSummary, terms []string) Fragments {
	snippet := textutil.TruncateRunes(textutil.EnsureUTF8(e.Content), SnippetLength)
	return Fragments{
		Subject:    h.Highlight(textutil.SanitizeUTF8(e.Subject), terms),
		Snippet:    h.Highlight(snippet, terms),
		SenderName: h.Highlight(textutil.SanitizeUTF8(e.SenderName), terms),
	}
}

// Highlight wraps every case-insensitive occurrence of every term in
// text with the marker strings. Text containing no term is returned
// unchanged.
func (h *Highlighter) Highlight(text string, terms []string) string {
	if text == "" || len(terms) == 0 {
		return text
	}
	for _, term := range terms {
		if term == "" {
			continue
		}
		text = wrapOccurrences(text, term, h.Prefix, h.Suffix)
	}
	return text
}

// wrapOccurrences wraps each case-insensitive occurrence of term in
// text, preserving the original casing of the matched region.
func wrapOccurrences(text, term, prefix, suffix string) string {
	lowerText := strings.ToLower(text)
	lowerTerm := strings.ToLower(term)

	// Case folding can change byte lengths for some scripts; when it
	// does, offsets into the lowered text no longer map back to the
	// original, so match case-sensitively instead of corrupting output.
	if len(lowerText) != len(text) {
		lowerText = text
		lowerTerm = term
	}

	var b strings.Builder
	start := 0
	for {
		i := strings.Index(lowerText[start:], lowerTerm)
		if i < 0 {
			break
		}
		i += start
		end := i + len(lowerTerm)
		b.WriteString(text[start:i])
		b.WriteString(prefix)
		b.WriteString(text[i:end])
		b.WriteString(suffix)
		start = end
	}
	if start == 0 {
		return text
	}
	b.WriteString(text[start:])
	return b.String()
}
