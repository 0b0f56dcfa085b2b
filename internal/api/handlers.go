package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/search"
	"github.com/ledgerbox/ledgerbox/internal/searchsvc"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// userID resolves the acting user from the X-User-ID header. A
// reverse proxy in front of the API is expected to set it after
// authentication; without one, all requests share a single scope.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}

// StatsResponse represents store statistics.
type StatsResponse struct {
	TotalEmails        int64 `json:"total_emails"`
	TotalLabels        int64 `json:"total_labels"`
	TotalSavedSearches int64 `json:"total_saved_searches"`
	DatabaseSize       int64 `json:"database_size_bytes"`
}

// handleStats returns store statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Database not available")
		return
	}

	stats, err := s.stats.GetStats()
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve statistics")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		TotalEmails:        stats.EmailCount,
		TotalLabels:        stats.LabelCount,
		TotalSavedSearches: stats.SavedSearchCount,
		DatabaseSize:       stats.DatabaseSize,
	})
}

// parseSortField maps the sort query parameter to a sort field.
func parseSortField(s string) (query.SortField, bool) {
	switch s {
	case "", "received_at":
		return query.SortByReceivedAt, true
	case "subject":
		return query.SortBySubject, true
	case "size":
		return query.SortBySize, true
	case "sender":
		return query.SortBySender, true
	default:
		return query.SortByReceivedAt, false
	}
}

// parseFilters builds a FilterSet from search endpoint query
// parameters. Unknown parameters are ignored; malformed values
// produce a *search.ValidationError.
func parseFilters(values map[string][]string) (search.FilterSet, error) {
	get := func(key string) string {
		if v, ok := values[key]; ok && len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	var f search.FilterSet
	f.Sender = get("sender")
	f.Subject = get("subject")
	f.Folder = get("folder")
	f.Client = get("client")

	for _, b := range []struct {
		key  string
		dest **bool
	}{
		{"has_attachments", &f.HasAttachments},
		{"is_read", &f.IsRead},
		{"is_starred", &f.IsStarred},
		{"is_important", &f.IsImportant},
	} {
		raw := get(b.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, &search.ValidationError{Field: b.key, Reason: "must be true or false"}
		}
		*b.dest = &v
	}

	if raw := get("labels"); raw != "" {
		for _, l := range strings.Split(raw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				f.Labels = append(f.Labels, l)
			}
		}
	}

	if raw := get("date_from"); raw != "" {
		t, err := search.ParseDate("date_from", raw)
		if err != nil {
			return f, err
		}
		f.DateFrom = t
	}
	if raw := get("date_to"); raw != "" {
		t, err := search.ParseDate("date_to", raw)
		if err != nil {
			return f, err
		}
		f.DateTo = t
	}

	for _, n := range []struct {
		key  string
		dest **int64
	}{
		{"size_min", &f.SizeMin},
		{"size_max", &f.SizeMax},
	} {
		raw := get(n.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, &search.ValidationError{Field: n.key, Reason: "must be an integer"}
		}
		*n.dest = &v
	}

	return f, nil
}

// SearchResponse is the search endpoint payload.
type SearchResponse struct {
	Query    string             `json:"query"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	HasMore  bool               `json:"has_more"`
	Results  []searchsvc.Result `json:"results"`
}

// handleSearch runs an email search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters, err := parseFilters(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	sortField, ok := parseSortField(q.Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_sort", "Unsupported sort field: "+q.Get("sort"))
		return
	}
	dir := query.SortDesc
	switch q.Get("dir") {
	case "", "desc":
	case "asc":
		dir = query.SortAsc
	default:
		writeError(w, http.StatusBadRequest, "invalid_sort", "Sort direction must be asc or desc")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if pageSize < 0 || pageSize > 100 {
		pageSize = 0 // service default
	}

	includeAttachments := false
	if raw := q.Get("include_attachments"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", "include_attachments must be true or false")
			return
		}
		includeAttachments = v
	}

	params := searchsvc.Params{
		Text:               q.Get("q"),
		Filters:            filters,
		Page:               page,
		PageSize:           pageSize,
		SortField:          sortField,
		SortDirection:      dir,
		IncludeAttachments: includeAttachments,
	}

	resp, err := s.svc.Search(r.Context(), userID(r), params)
	if err != nil {
		if search.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:    params.Text,
		Total:    resp.Total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  resp.HasMore,
		Results:  resp.Results,
	})
}

// handleSearchAttachments searches attachments by filename or content
// type, with optional type and size restrictions.
func (s *Server) handleSearchAttachments(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	aq := query.AttachmentQuery{Text: strings.TrimSpace(values.Get("q"))}

	if raw := values.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				aq.ContentTypes = append(aq.ContentTypes, t)
			}
		}
	}

	for _, n := range []struct {
		key  string
		dest **int64
	}{
		{"size_min", &aq.SizeMin},
		{"size_max", &aq.SizeMax},
	} {
		raw := values.Get(n.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", n.key+" must be an integer")
			return
		}
		*n.dest = &v
	}

	hits, err := s.svc.SearchAttachments(r.Context(), userID(r), aq)
	if err != nil {
		if search.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}
		s.logger.Error("attachment search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Attachment search failed")
		return
	}
	if hits == nil {
		hits = []query.AttachmentHit{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attachments": hits,
	})
}

// handleSuggest returns typeahead suggestions for a partial input.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("q")

	suggestions, err := s.svc.Suggest(r.Context(), userID(r), partial)
	if err != nil {
		s.logger.Error("suggest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Suggestion lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
	})
}

// HistoryEntry is one recent search in history responses.
type HistoryEntry struct {
	Query     string           `json:"query"`
	Filters   search.FilterSet `json:"filters"`
	Timestamp string           `json:"timestamp"`
}

// handleHistory returns the user's recent searches, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.svc.History(userID(r))

	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{
			Query:     e.Query,
			Filters:   e.Filters,
			Timestamp: e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": out,
	})
}

// SavedSearchRequest is the create payload for saved searches.
type SavedSearchRequest struct {
	Name    string           `json:"name"`
	Query   string           `json:"query"`
	Filters search.FilterSet `json:"filters"`
}

// handleCreateSavedSearch persists a named search.
func (s *Server) handleCreateSavedSearch(w http.ResponseWriter, r *http.Request) {
	var req SavedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}

	ss, err := s.svc.SaveSearch(r.Context(), userID(r), req.Name, req.Query, req.Filters)
	if err != nil {
		if search.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "invalid_saved_search", err.Error())
			return
		}
		s.logger.Error("save search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save search")
		return
	}

	writeJSON(w, http.StatusCreated, ss)
}

// handleListSavedSearches returns the user's saved searches.
func (s *Server) handleListSavedSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := s.svc.ListSavedSearches(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("list saved searches failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list saved searches")
		return
	}
	if searches == nil {
		searches = []query.SavedSearch{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"saved_searches": searches,
	})
}

// handleDeleteSavedSearch removes a saved search. Unknown IDs delete
// cleanly.
func (s *Server) handleDeleteSavedSearch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.svc.DeleteSavedSearch(r.Context(), userID(r), id); err != nil {
		s.logger.Error("delete saved search failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete saved search")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
