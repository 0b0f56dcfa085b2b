package query

import (
	"context"

	"github.com/ledgerbox/ledgerbox/internal/search"
)

// Engine provides query operations over the emails and saved_searches
// collections. The SQLite implementation is the default backend; tests
// use the querytest fake.
type Engine interface {
	// ListEmails returns the emails of userID matching the query
	// descriptor, ordered and paginated per page. Results come back in
	// the store's order; relevance ranking happens above this layer.
	ListEmails(ctx context.Context, userID string, q *search.Query, page Page) ([]EmailSummary, error)

	// CountEmails returns the total number of emails matching the query,
	// ignoring pagination.
	CountEmails(ctx context.Context, userID string, q *search.Query) (int64, error)

	// SearchAttachments returns attachments of userID's emails matching
	// the attachment query, newest email first, capped at
	// MaxAttachmentResults.
	SearchAttachments(ctx context.Context, userID string, q AttachmentQuery) ([]AttachmentHit, error)

	// ListAttachments returns the attachments of the given emails,
	// keyed by email ID. Used to inline attachments into search
	// results.
	ListAttachments(ctx context.Context, emailIDs []int64) (map[int64][]Attachment, error)

	// Suggestion sources. Each returns at most limit rows whose
	// field matches partial as a substring.
	Senders(ctx context.Context, userID, partial string, limit int) ([]SenderRow, error)
	Subjects(ctx context.Context, userID, partial string, limit int) ([]string, error)
	Labels(ctx context.Context, userID, partial string, limit int) ([]LabelRow, error)

	// Saved searches.
	CreateSavedSearch(ctx context.Context, ss *SavedSearch) error
	ListSavedSearches(ctx context.Context, userID string) ([]SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, userID, id string) error

	// Close releases any resources held by the engine.
	Close() error
}
