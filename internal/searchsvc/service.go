// Package searchsvc ties the email search pipeline together: query
// normalization, cache lookup, store fetch, relevance ranking,
// highlighting, history, and saved searches.
package searchsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/ledgerbox/ledgerbox/internal/cache"
	"github.com/ledgerbox/ledgerbox/internal/history"
	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/rank"
	"github.com/ledgerbox/ledgerbox/internal/search"
	"github.com/ledgerbox/ledgerbox/internal/suggest"
)

// Params describes one search invocation.
type Params struct {
	Text    string
	Filters search.FilterSet

	Page     int // zero-based page index
	PageSize int // 0 means the service default

	SortField     query.SortField
	SortDirection query.SortDirection

	// IncludeAttachments inlines each result's attachment rows.
	IncludeAttachments bool
}

// Result is one ranked, highlighted search hit. Attachments is
// populated only when the search asked for them.
type Result struct {
	rank.ScoredEmail
	Highlighted rank.Fragments     `json:"highlighted"`
	Attachments []query.Attachment `json:"attachments,omitempty"`
}

// Response is the outcome of a search: one page of ranked results plus
// paging metadata.
type Response struct {
	Results []Result `json:"results"`
	Total   int64    `json:"total"`
	HasMore bool     `json:"has_more"`
}

// Service implements the upstream search surface. State (cache,
// history) is partitioned per user ID inside explicitly constructed
// stores; two Service instances share nothing.
type Service struct {
	engine      query.Engine
	cache       *cache.Cache[*Response]
	history     *history.Store
	suggester   *suggest.Engine
	scorer      *rank.Scorer
	highlighter *rank.Highlighter
	logger      *slog.Logger
	now         func() time.Time
	pageSize    int
}

// New creates a Service over the given query engine with default
// cache, history, and ranking components.
func New(engine query.Engine) *Service {
	return &Service{
		engine:      engine,
		cache:       cache.New[*Response](cache.DefaultTTL, cache.DefaultCapacity),
		history:     history.NewStore(),
		suggester:   suggest.New(engine),
		scorer:      rank.NewScorer(),
		highlighter: rank.NewHighlighter(),
		logger:      slog.Default(),
		now:         time.Now,
		pageSize:    query.DefaultPageSize,
	}
}

// WithLogger sets the logger for the service and its suggestion engine.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	s.suggester.WithLogger(logger)
	return s
}

// WithCache replaces the result cache. Used to tune TTL and capacity.
func (s *Service) WithCache(c *cache.Cache[*Response]) *Service {
	s.cache = c
	return s
}

// WithNow sets the time source for ranking and timestamps. Used by
// tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	s.scorer.Now = now
	s.history.WithNow(now)
	return s
}

// WithPageSize sets the default page size.
func (s *Service) WithPageSize(n int) *Service {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// PageSize returns the default page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

// cacheKey derives the cache key for a search. The signature covers
// query text and filters; sort and paging are appended so different
// pages of the same search cache independently.
func (s *Service) cacheKey(userID string, q *search.Query, p Params) string {
	sig := fmt.Sprintf("%s|sort=%d.%d|page=%d.%d|att=%t",
		q.Signature(), p.SortField, p.SortDirection, p.Page, p.PageSize,
		p.IncludeAttachments)
	return cache.Key(userID, sig)
}

// Search runs the full pipeline for one page of results. Validation
// failures surface before the store is contacted; store failures come
// back as *TransportError and are never cached. A query with no text
// and no filters is a no-op returning an empty response.
func (s *Service) Search(ctx context.Context, userID string, p Params) (*Response, error) {
	if p.PageSize <= 0 {
		p.PageSize = s.pageSize
	}
	if p.Page < 0 {
		p.Page = 0
	}

	q, err := search.Build(p.Text, p.Filters)
	if err != nil {
		return nil, err
	}
	if !q.HasCriteria() {
		return &Response{}, nil
	}

	key := s.cacheKey(userID, q, p)
	if resp, ok := s.cache.Get(key); ok {
		return resp, nil
	}

	page := query.Page{
		Limit:         p.PageSize,
		Offset:        p.Page * p.PageSize,
		SortField:     p.SortField,
		SortDirection: p.SortDirection,
	}

	emails, err := s.engine.ListEmails(ctx, userID, q, page)
	if err != nil {
		s.logger.Error("email search failed", "user", userID, "error", err)
		return nil, &TransportError{Err: eris.Wrap(err, "list emails")}
	}
	total, err := s.engine.CountEmails(ctx, userID, q)
	if err != nil {
		s.logger.Error("email count failed", "user", userID, "error", err)
		return nil, &TransportError{Err: eris.Wrap(err, "count emails")}
	}

	var attachments map[int64][]query.Attachment
	if p.IncludeAttachments && len(emails) > 0 {
		ids := make([]int64, len(emails))
		for i, em := range emails {
			ids[i] = em.ID
		}
		attachments, err = s.engine.ListAttachments(ctx, ids)
		if err != nil {
			s.logger.Error("attachment fetch failed", "user", userID, "error", err)
			return nil, &TransportError{Err: eris.Wrap(err, "list attachments")}
		}
	}

	scored := s.scorer.Rank(emails, q.Terms)
	results := make([]Result, len(scored))
	for i, se := range scored {
		results[i] = Result{
			ScoredEmail: se,
			Highlighted: s.highlighter.Fragments(se.EmailSummary, q.Terms),
			Attachments: attachments[se.ID],
		}
	}

	resp := &Response{
		Results: results,
		Total:   total,
		HasMore: len(emails) == p.PageSize,
	}

	s.cache.Put(key, resp)
	s.history.Add(userID, q)

	return resp, nil
}

// SearchAttachments searches attachments by filename or content type,
// with optional content-type and size restrictions. Results carry the
// parent email's subject and sender, newest email first.
func (s *Service) SearchAttachments(ctx context.Context, userID string, q query.AttachmentQuery) ([]query.AttachmentHit, error) {
	if q.SizeMin != nil && q.SizeMax != nil && *q.SizeMin > *q.SizeMax {
		return nil, &search.ValidationError{Field: "size", Reason: "minimum exceeds maximum"}
	}
	hits, err := s.engine.SearchAttachments(ctx, userID, q)
	if err != nil {
		s.logger.Error("attachment search failed", "user", userID, "error", err)
		return nil, &TransportError{Err: eris.Wrap(err, "search attachments")}
	}
	return hits, nil
}

// Suggest returns typeahead candidates for a partial input. Suggestion
// fetches are independent of any in-flight search.
func (s *Service) Suggest(ctx context.Context, userID, partial string) ([]suggest.Suggestion, error) {
	return s.suggester.Suggest(ctx, userID, partial)
}

// History returns the user's recent searches, newest first.
func (s *Service) History(userID string) []history.Entry {
	return s.history.Recent(userID)
}

// SaveSearch persists the given query+filter combination under a name.
// The name must be non-blank and the search must carry at least one
// criterion.
func (s *Service) SaveSearch(ctx context.Context, userID, name, text string, filters search.FilterSet) (*query.SavedSearch, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &search.ValidationError{Field: "name", Reason: "must not be blank"}
	}

	q, err := search.Build(text, filters)
	if err != nil {
		return nil, err
	}
	if !q.HasCriteria() {
		return nil, &search.ValidationError{Field: "criteria", Reason: "no criteria to save"}
	}

	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}

	ss := &query.SavedSearch{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Query:     q.Text(),
		Filters:   string(filtersJSON),
		CreatedAt: s.now().UTC(),
	}
	if err := s.engine.CreateSavedSearch(ctx, ss); err != nil {
		s.logger.Error("save search failed", "user", userID, "error", err)
		return nil, &TransportError{Err: eris.Wrap(err, "create saved search")}
	}
	return ss, nil
}

// ListSavedSearches returns the user's saved searches, newest first.
func (s *Service) ListSavedSearches(ctx context.Context, userID string) ([]query.SavedSearch, error) {
	searches, err := s.engine.ListSavedSearches(ctx, userID)
	if err != nil {
		s.logger.Error("list saved searches failed", "user", userID, "error", err)
		return nil, &TransportError{Err: eris.Wrap(err, "list saved searches")}
	}
	return searches, nil
}

// DeleteSavedSearch removes a saved search. Deleting an unknown ID is
// not an error.
func (s *Service) DeleteSavedSearch(ctx context.Context, userID, id string) error {
	if err := s.engine.DeleteSavedSearch(ctx, userID, id); err != nil {
		s.logger.Error("delete saved search failed", "user", userID, "error", err)
		return &TransportError{Err: eris.Wrap(err, "delete saved search")}
	}
	return nil
}
