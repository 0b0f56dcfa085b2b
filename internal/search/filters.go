// Package search defines search criteria for the ledgerbox email inbox
// and normalizes raw user input into a validated query descriptor.
package search

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// FilterSet holds the optional filter predicates a search can carry.
// Nil pointer fields and empty strings mean "no filter on this field".
type FilterSet struct {
	Sender         string     `json:"sender,omitempty"`          // matches sender name or sender email (substring)
	Subject        string     `json:"subject,omitempty"`         // matches subject (substring)
	Folder         string     `json:"folder,omitempty"`          // exact folder ID
	Client         string     `json:"client,omitempty"`          // exact client record ID
	HasAttachments *bool      `json:"has_attachments,omitempty"` // true: at least one attachment; false: none
	IsRead         *bool      `json:"is_read,omitempty"`         // read flag
	IsStarred      *bool      `json:"is_starred,omitempty"`      // starred flag
	IsImportant    *bool      `json:"is_important,omitempty"`    // important flag
	Labels         []string   `json:"labels,omitempty"`          // all listed labels must be present
	DateFrom       *time.Time `json:"date_from,omitempty"`       // received at or after
	DateTo         *time.Time `json:"date_to,omitempty"`         // received at or before
	SizeMin        *int64     `json:"size_min,omitempty"`        // size in bytes, inclusive lower bound
	SizeMax        *int64     `json:"size_max,omitempty"`        // size in bytes, inclusive upper bound
}

// IsZero reports whether no filter field is set.
func (f FilterSet) IsZero() bool {
	return f.Sender == "" &&
		f.Subject == "" &&
		f.Folder == "" &&
		f.Client == "" &&
		f.HasAttachments == nil &&
		f.IsRead == nil &&
		f.IsStarred == nil &&
		f.IsImportant == nil &&
		len(f.Labels) == 0 &&
		f.DateFrom == nil &&
		f.DateTo == nil &&
		f.SizeMin == nil &&
		f.SizeMax == nil
}

// Validate checks the filter set for internally inconsistent values.
// It returns a *ValidationError describing the first problem found.
func (f FilterSet) Validate() error {
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return &ValidationError{Field: "date_from", Reason: "must not be after date_to"}
	}
	if f.SizeMin != nil && *f.SizeMin < 0 {
		return &ValidationError{Field: "size_min", Reason: "must not be negative"}
	}
	if f.SizeMax != nil && *f.SizeMax < 0 {
		return &ValidationError{Field: "size_max", Reason: "must not be negative"}
	}
	if f.SizeMin != nil && f.SizeMax != nil && *f.SizeMin > *f.SizeMax {
		return &ValidationError{Field: "size_min", Reason: "must not exceed size_max"}
	}
	return nil
}

// dateFormats are the accepted formats for filter dates, tried in order.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
}

// ParseDate parses a filter date string in one of the accepted formats.
// The result is normalized to UTC.
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &ValidationError{Field: field, Reason: "unparseable date " + strconv.Quote(value)}
}

// normalizedLabels returns the label set trimmed, deduplicated, and sorted.
// Used for canonical signatures so label order does not affect identity.
func (f FilterSet) normalizedLabels() []string {
	if len(f.Labels) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(f.Labels))
	out := make([]string, 0, len(f.Labels))
	for _, l := range f.Labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
