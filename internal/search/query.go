package search

import (
	"strconv"
	"strings"
	"time"
)

// Query is the normalized search descriptor: free-text terms plus a
// validated filter set. Each term is matched against subject, content,
// sender name, sender email, and recipients (OR across fields); terms
// are combined with AND. The backing store is responsible for escaping
// terms before pattern matching.
type Query struct {
	Terms   []string
	Filters FilterSet
}

// Build normalizes raw text and a filter set into a Query.
// Text is split on whitespace; empty text yields no terms. Filter
// validation failures are returned as *ValidationError before any
// store contact.
func Build(text string, filters FilterSet) (*Query, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	return &Query{
		Terms:   strings.Fields(text),
		Filters: filters,
	}, nil
}

// HasCriteria reports whether the query carries any text or filter.
// A query with no criteria is a no-op: it fetches nothing and is
// never cached or recorded in history.
func (q *Query) HasCriteria() bool {
	return len(q.Terms) > 0 || !q.Filters.IsZero()
}

// Text returns the free-text portion of the query, rejoined from its
// normalized terms.
func (q *Query) Text() string {
	return strings.Join(q.Terms, " ")
}

// Signature returns a canonical serialization of the query and filter
// set. Two queries with equal signatures describe the same search;
// signatures key the result cache and deduplicate history entries.
// Label order does not affect the signature.
func (q *Query) Signature() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strings.ToLower(q.Text()))
	writeField(&b, "sender", q.Filters.Sender)
	writeField(&b, "subject", q.Filters.Subject)
	writeField(&b, "folder", q.Filters.Folder)
	writeField(&b, "client", q.Filters.Client)
	writeBool(&b, "attach", q.Filters.HasAttachments)
	writeBool(&b, "read", q.Filters.IsRead)
	writeBool(&b, "starred", q.Filters.IsStarred)
	writeBool(&b, "important", q.Filters.IsImportant)
	if labels := q.Filters.normalizedLabels(); len(labels) > 0 {
		b.WriteString("|labels=")
		b.WriteString(strings.Join(labels, ","))
	}
	writeTime(&b, "from", q.Filters.DateFrom)
	writeTime(&b, "to", q.Filters.DateTo)
	writeInt(&b, "min", q.Filters.SizeMin)
	writeInt(&b, "max", q.Filters.SizeMax)
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString("|")
	b.WriteString(name)
	b.WriteString("=")
	b.WriteString(strings.ToLower(strings.TrimSpace(value)))
}

func writeBool(b *strings.Builder, name string, value *bool) {
	if value == nil {
		return
	}
	b.WriteString("|")
	b.WriteString(name)
	if *value {
		b.WriteString("=t")
	} else {
		b.WriteString("=f")
	}
}

func writeTime(b *strings.Builder, name string, value *time.Time) {
	if value == nil {
		return
	}
	b.WriteString("|")
	b.WriteString(name)
	b.WriteString("=")
	b.WriteString(value.UTC().Format(time.RFC3339))
}

func writeInt(b *strings.Builder, name string, value *int64) {
	if value == nil {
		return
	}
	b.WriteString("|")
	b.WriteString(name)
	b.WriteString("=")
	b.WriteString(strconv.FormatInt(*value, 10))
}
