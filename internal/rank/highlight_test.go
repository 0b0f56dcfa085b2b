package rank

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ledgerbox/ledgerbox/internal/query"
)

func TestHighlight(t *testing.T) {
	h := NewHighlighter()

	tests := []struct {
		name  string
		text  string
		terms []string
		want  string
	}{
		{
			name:  "single occurrence",
			text:  "Invoice overdue",
			terms: []string{"invoice"},
			want:  "<mark>Invoice</mark> overdue",
		},
		{
			name:  "preserves original casing",
			text:  "INVOICE and invoice",
			terms: []string{"Invoice"},
			want:  "<mark>INVOICE</mark> and <mark>invoice</mark>",
		},
		{
			name:  "multiple terms",
			text:  "invoice overdue",
			terms: []string{"invoice", "overdue"},
			want:  "<mark>invoice</mark> <mark>overdue</mark>",
		},
		{
			name:  "no match returns input unchanged",
			text:  "quarterly report",
			terms: []string{"invoice"},
			want:  "quarterly report",
		},
		{
			name:  "empty text",
			text:  "",
			terms: []string{"invoice"},
			want:  "",
		},
		{
			name:  "no terms",
			text:  "invoice",
			terms: nil,
			want:  "invoice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Highlight(tt.text, tt.terms); got != tt.want {
				t.Errorf("Highlight = %q, want %q", got, tt.want)
			}
		})
	}
}

// Highlighting text that contains none of the terms must be the
// identity function, byte for byte.
func TestHighlightIdempotentOnNonMatch(t *testing.T) {
	h := NewHighlighter()
	text := "Björn's quarterly report — 2026"
	if got := h.Highlight(text, []string{"invoice", "overdue"}); got != text {
		t.Errorf("non-matching highlight changed text: %q", got)
	}
}

func TestHighlightCustomMarkers(t *testing.T) {
	h := &Highlighter{Prefix: "[", Suffix: "]"}
	if got := h.Highlight("pay the invoice", []string{"invoice"}); got != "pay the [invoice]" {
		t.Errorf("got %q", got)
	}
}

func TestFragments(t *testing.T) {
	h := NewHighlighter()
	e := query.EmailSummary{
		Subject:    "Invoice #1042",
		Content:    strings.Repeat("x", 600) + " invoice",
		SenderName: "Acme Billing",
	}

	frags := h.Fragments(e, []string{"invoice"})

	if frags.Subject != "<mark>Invoice</mark> #1042" {
		t.Errorf("subject = %q", frags.Subject)
	}
	// The snippet is truncated to 500 runes before highlighting, so the
	// trailing "invoice" beyond the cap is not present, let alone marked.
	if len([]rune(frags.Snippet)) != SnippetLength {
		t.Errorf("snippet length = %d runes, want %d", len([]rune(frags.Snippet)), SnippetLength)
	}
	if strings.Contains(frags.Snippet, "<mark>") {
		t.Errorf("snippet should not contain marks: %q", frags.Snippet)
	}
	if frags.SenderName != "Acme Billing" {
		t.Errorf("sender = %q", frags.SenderName)
	}
}

// Content stored before the UTF-8 migration can carry legacy bytes; the
// snippet must still come out as valid UTF-8 with matches marked.
func TestFragmentsLegacyEncodedContent(t *testing.T) {
	h := NewHighlighter()
	e := query.EmailSummary{
		Subject: "Quote",
		// "café invoice" in Windows-1252.
		Content:    "caf\xe9 invoice",
		SenderName: "Caf\xe9 Lumi\xe8re",
	}

	frags := h.Fragments(e, []string{"invoice"})

	if !utf8.ValidString(frags.Snippet) {
		t.Errorf("snippet is not valid UTF-8: %q", frags.Snippet)
	}
	if !strings.Contains(frags.Snippet, "<mark>invoice</mark>") {
		t.Errorf("match not marked: %q", frags.Snippet)
	}
	if !utf8.ValidString(frags.SenderName) {
		t.Errorf("sender is not valid UTF-8: %q", frags.SenderName)
	}
}
