// Package querytest provides shared test doubles for the query.Engine
// interface.
package querytest

import (
	"context"

	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/search"
)

// MockEngine implements query.Engine for testing. Each method delegates
// to an optional function field; when the field is nil, the
// corresponding data field (or a zero value) is returned.
type MockEngine struct {
	Emails         []query.EmailSummary
	Total          int64
	SenderRows     []query.SenderRow
	SubjectRows    []string
	LabelRows      []query.LabelRow
	SavedSearches  []query.SavedSearch
	AttachmentHits []query.AttachmentHit
	Attachments    map[int64][]query.Attachment

	// Call counters for cache-hit assertions.
	ListCalls  int
	CountCalls int

	// Optional overrides; set these to customise behavior per-test.
	ListEmailsFunc        func(context.Context, string, *search.Query, query.Page) ([]query.EmailSummary, error)
	CountEmailsFunc       func(context.Context, string, *search.Query) (int64, error)
	SearchAttachmentsFunc func(context.Context, string, query.AttachmentQuery) ([]query.AttachmentHit, error)
	SendersFunc           func(context.Context, string, string, int) ([]query.SenderRow, error)
	SubjectsFunc          func(context.Context, string, string, int) ([]string, error)
	LabelsFunc            func(context.Context, string, string, int) ([]query.LabelRow, error)
	CreateSavedSearchFunc func(context.Context, *query.SavedSearch) error
	DeleteSavedSearchFunc func(context.Context, string, string) error
}

// Compile-time check.
var _ query.Engine = (*MockEngine)(nil)

func (m *MockEngine) ListEmails(ctx context.Context, userID string, q *search.Query, page query.Page) ([]query.EmailSummary, error) {
	m.ListCalls++
	if m.ListEmailsFunc != nil {
		return m.ListEmailsFunc(ctx, userID, q, page)
	}
	return m.Emails, nil
}

func (m *MockEngine) CountEmails(ctx context.Context, userID string, q *search.Query) (int64, error) {
	m.CountCalls++
	if m.CountEmailsFunc != nil {
		return m.CountEmailsFunc(ctx, userID, q)
	}
	if m.Total != 0 {
		return m.Total, nil
	}
	return int64(len(m.Emails)), nil
}

func (m *MockEngine) SearchAttachments(ctx context.Context, userID string, q query.AttachmentQuery) ([]query.AttachmentHit, error) {
	if m.SearchAttachmentsFunc != nil {
		return m.SearchAttachmentsFunc(ctx, userID, q)
	}
	return m.AttachmentHits, nil
}

func (m *MockEngine) ListAttachments(_ context.Context, emailIDs []int64) (map[int64][]query.Attachment, error) {
	out := make(map[int64][]query.Attachment)
	for _, id := range emailIDs {
		if atts, ok := m.Attachments[id]; ok {
			out[id] = atts
		}
	}
	return out, nil
}

func (m *MockEngine) Senders(ctx context.Context, userID, partial string, limit int) ([]query.SenderRow, error) {
	if m.SendersFunc != nil {
		return m.SendersFunc(ctx, userID, partial, limit)
	}
	return capRows(m.SenderRows, limit), nil
}

func (m *MockEngine) Subjects(ctx context.Context, userID, partial string, limit int) ([]string, error) {
	if m.SubjectsFunc != nil {
		return m.SubjectsFunc(ctx, userID, partial, limit)
	}
	return capRows(m.SubjectRows, limit), nil
}

func (m *MockEngine) Labels(ctx context.Context, userID, partial string, limit int) ([]query.LabelRow, error) {
	if m.LabelsFunc != nil {
		return m.LabelsFunc(ctx, userID, partial, limit)
	}
	return capRows(m.LabelRows, limit), nil
}

func (m *MockEngine) CreateSavedSearch(ctx context.Context, ss *query.SavedSearch) error {
	if m.CreateSavedSearchFunc != nil {
		return m.CreateSavedSearchFunc(ctx, ss)
	}
	m.SavedSearches = append([]query.SavedSearch{*ss}, m.SavedSearches...)
	return nil
}

func (m *MockEngine) ListSavedSearches(_ context.Context, userID string) ([]query.SavedSearch, error) {
	var out []query.SavedSearch
	for _, ss := range m.SavedSearches {
		if ss.UserID == userID {
			out = append(out, ss)
		}
	}
	return out, nil
}

func (m *MockEngine) DeleteSavedSearch(ctx context.Context, userID, id string) error {
	if m.DeleteSavedSearchFunc != nil {
		return m.DeleteSavedSearchFunc(ctx, userID, id)
	}
	out := m.SavedSearches[:0]
	for _, ss := range m.SavedSearches {
		if ss.UserID != userID || ss.ID != id {
			out = append(out, ss)
		}
	}
	m.SavedSearches = out
	return nil
}

func (m *MockEngine) Close() error { return nil }

func capRows[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
