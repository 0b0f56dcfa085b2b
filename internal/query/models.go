// Package query provides the record-store query layer for the email
// inbox. It exposes a backend-agnostic Engine interface with a SQLite
// implementation; the rest of the application treats the store as an
// opaque filterable, sortable, paginated collection.
package query

import "time"

// EmailSummary represents an email in search result lists. It carries
// enough content for scoring and snippet highlighting without a
// separate body fetch.
type EmailSummary struct {
	ID              int64
	Subject         string
	Content         string // plain-text body
	SenderName      string
	SenderEmail     string
	Recipients      string // comma-separated recipient addresses
	ReceivedAt      time.Time
	SizeBytes       int64
	IsRead          bool
	IsStarred       bool
	IsImportant     bool
	AttachmentCount int
	Folder          string
	Client          string
	Labels          []string
}

// Attachment is one file attached to an email.
type Attachment struct {
	ID          int64  `json:"id"`
	EmailID     int64  `json:"email_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// AttachmentHit is an attachment search result: the attachment plus
// the identifying fields of its parent email.
type AttachmentHit struct {
	Attachment
	EmailSubject string    `json:"email_subject"`
	SenderName   string    `json:"sender_name"`
	ReceivedAt   time.Time `json:"received_at"`
}

// AttachmentQuery describes an attachment search. Text matches
// filename or content type as a substring; ContentTypes restricts to
// an exact-match list; the size bounds are inclusive.
type AttachmentQuery struct {
	Text         string
	ContentTypes []string
	SizeMin      *int64
	SizeMax      *int64
}

// MaxAttachmentResults caps an attachment search result list.
const MaxAttachmentResults = 100

// SavedSearch is a named, persisted query+filter combination.
type SavedSearch struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Query     string    `json:"query"`
	Filters   string    `json:"filters"` // JSON-encoded search.FilterSet
	CreatedAt time.Time `json:"created_at"`
}

// SenderRow is a suggestion source row for sender typeahead.
type SenderRow struct {
	Name  string
	Email string
}

// LabelRow is a suggestion source row for label typeahead.
type LabelRow struct {
	Name  string
	Color string
}

// SortField selects the store-side ordering of email results.
type SortField int

const (
	SortByReceivedAt SortField = iota
	SortBySubject
	SortBySize
	SortBySender
)

func (f SortField) String() string {
	switch f {
	case SortByReceivedAt:
		return "received_at"
	case SortBySubject:
		return "subject"
	case SortBySize:
		return "size"
	case SortBySender:
		return "sender"
	default:
		return "unknown"
	}
}

// SortDirection represents ascending or descending sort order.
type SortDirection int

const (
	SortDesc SortDirection = iota
	SortAsc
)

// Page specifies pagination and ordering for a result listing.
type Page struct {
	Limit  int
	Offset int

	SortField     SortField
	SortDirection SortDirection
}

// DefaultPageSize is the page size used when a Page carries no limit.
const DefaultPageSize = 50

// Normalize fills in defaults for an unset or out-of-range page.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
