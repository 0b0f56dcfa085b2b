package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ledgerbox/ledgerbox/internal/search"
)

// SQLiteEngine implements Engine against a SQLite database opened by
// the store package.
type SQLiteEngine struct {
	db *sql.DB
}

// NewSQLiteEngine creates a query engine backed by the given database.
func NewSQLiteEngine(db *sql.DB) *SQLiteEngine {
	return &SQLiteEngine{db: db}
}

// Close is a no-op; the store owns the database handle.
func (e *SQLiteEngine) Close() error {
	return nil
}

// escapeLike escapes LIKE wildcards in a user-supplied term so it
// matches literally. Queries using escaped terms must carry ESCAPE '\'.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}

// likeContains builds a contains-pattern for an escaped term.
func likeContains(term string) string {
	return "%" + escapeLike(term) + "%"
}

// buildEmailConditions builds the WHERE conditions and args for a
// search query, excluding the user_id predicate. Shared between
// ListEmails and CountEmails.
func buildEmailConditions(q *search.Query) (conditions []string, args []interface{}) {
	// Free text: per term, OR across subject, content, sender name,
	// sender email, and recipients; terms are ANDed.
	for _, term := range q.Terms {
		pattern := likeContains(term)
		conditions = append(conditions, `(
			e.subject LIKE ? ESCAPE '\'
			OR e.content_text LIKE ? ESCAPE '\'
			OR e.sender_name LIKE ? ESCAPE '\'
			OR e.sender_email LIKE ? ESCAPE '\'
			OR e.recipient_emails LIKE ? ESCAPE '\'
		)`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	f := q.Filters

	if f.Sender != "" {
		pattern := likeContains(f.Sender)
		conditions = append(conditions, `(e.sender_email LIKE ? ESCAPE '\' OR e.sender_name LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if f.Subject != "" {
		conditions = append(conditions, `e.subject LIKE ? ESCAPE '\'`)
		args = append(args, likeContains(f.Subject))
	}

	if f.Folder != "" {
		conditions = append(conditions, "e.folder_id = ?")
		args = append(args, f.Folder)
	}

	if f.Client != "" {
		conditions = append(conditions, "e.client_id = ?")
		args = append(args, f.Client)
	}

	if f.HasAttachments != nil {
		if *f.HasAttachments {
			conditions = append(conditions, "e.attachment_count > 0")
		} else {
			conditions = append(conditions, "e.attachment_count = 0")
		}
	}

	if f.IsRead != nil {
		conditions = append(conditions, "e.is_read = ?")
		args = append(args, *f.IsRead)
	}

	if f.IsStarred != nil {
		conditions = append(conditions, "e.is_starred = ?")
		args = append(args, *f.IsStarred)
	}

	if f.IsImportant != nil {
		conditions = append(conditions, "e.is_important = ?")
		args = append(args, *f.IsImportant)
	}

	// Every listed label must be attached to the email.
	for _, label := range f.Labels {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM email_labels el
			JOIN labels l ON l.id = el.label_id
			WHERE el.email_id = e.id AND l.name = ?
		)`)
		args = append(args, label)
	}

	if f.DateFrom != nil {
		conditions = append(conditions, "e.received_at >= ?")
		args = append(args, f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		conditions = append(conditions, "e.received_at <= ?")
		args = append(args, f.DateTo.UTC())
	}

	if f.SizeMin != nil {
		conditions = append(conditions, "e.size_bytes >= ?")
		args = append(args, *f.SizeMin)
	}
	if f.SizeMax != nil {
		conditions = append(conditions, "e.size_bytes <= ?")
		args = append(args, *f.SizeMax)
	}

	return conditions, args
}

// sortClause validates the sort field and direction and returns the
// ORDER BY expression. Invalid enum values are rejected rather than
// interpolated into SQL.
func sortClause(p Page) (string, error) {
	var column string
	switch p.SortField {
	case SortByReceivedAt:
		column = "e.received_at"
	case SortBySubject:
		column = "e.subject COLLATE NOCASE"
	case SortBySize:
		column = "e.size_bytes"
	case SortBySender:
		column = "e.sender_name COLLATE NOCASE"
	default:
		return "", fmt.Errorf("unsupported sort field: %d", p.SortField)
	}

	var dir string
	switch p.SortDirection {
	case SortDesc:
		dir = "DESC"
	case SortAsc:
		dir = "ASC"
	default:
		return "", fmt.Errorf("unsupported sort direction: %d", p.SortDirection)
	}

	// Secondary key keeps pagination stable for ties.
	return fmt.Sprintf("%s %s, e.id %s", column, dir, dir), nil
}

func (e *SQLiteEngine) ListEmails(ctx context.Context, userID string, q *search.Query, page Page) ([]EmailSummary, error) {
	page = page.Normalize()

	orderBy, err := sortClause(page)
	if err != nil {
		return nil, err
	}

	conditions, condArgs := buildEmailConditions(q)
	where := "e.user_id = ?"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	args := make([]interface{}, 0, len(condArgs)+3)
	args = append(args, userID)
	args = append(args, condArgs...)
	args = append(args, page.Limit, page.Offset)

	query := fmt.Sprintf(`
		SELECT
			e.id,
			COALESCE(e.subject, ''),
			COALESCE(e.content_text, ''),
			COALESCE(e.sender_name, ''),
			COALESCE(e.sender_email, ''),
			COALESCE(e.recipient_emails, ''),
			e.received_at,
			COALESCE(e.size_bytes, 0),
			e.is_read,
			e.is_starred,
			e.is_important,
			e.attachment_count,
			COALESCE(e.folder_id, ''),
			COALESCE(e.client_id, '')
		FROM emails e
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, where, orderBy)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var results []EmailSummary
	for rows.Next() {
		var em EmailSummary
		var receivedAt sql.NullTime
		if err := rows.Scan(
			&em.ID,
			&em.Subject,
			&em.Content,
			&em.SenderName,
			&em.SenderEmail,
			&em.Recipients,
			&receivedAt,
			&em.SizeBytes,
			&em.IsRead,
			&em.IsStarred,
			&em.IsImportant,
			&em.AttachmentCount,
			&em.Folder,
			&em.Client,
		); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		if receivedAt.Valid {
			em.ReceivedAt = receivedAt.Time
		}
		results = append(results, em)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emails: %w", err)
	}

	if len(results) > 0 {
		if err := e.fetchLabelsForEmails(ctx, results); err != nil {
			return nil, fmt.Errorf("fetch labels: %w", err)
		}
	}

	return results, nil
}

func (e *SQLiteEngine) CountEmails(ctx context.Context, userID string, q *search.Query) (int64, error) {
	conditions, condArgs := buildEmailConditions(q)
	where := "e.user_id = ?"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	args := make([]interface{}, 0, len(condArgs)+1)
	args = append(args, userID)
	args = append(args, condArgs...)

	var count int64
	query := "SELECT COUNT(*) FROM emails e WHERE " + where
	if err := e.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count emails: %w", err)
	}
	return count, nil
}

// fetchLabelsForEmails populates the Labels field of each summary with
// a single IN query instead of one query per email.
func (e *SQLiteEngine) fetchLabelsForEmails(ctx context.Context, emails []EmailSummary) error {
	index := make(map[int64]int, len(emails))
	placeholders := make([]string, len(emails))
	args := make([]interface{}, len(emails))
	for i := range emails {
		index[emails[i].ID] = i
		placeholders[i] = "?"
		args[i] = emails[i].ID
	}

	query := fmt.Sprintf(`
		SELECT el.email_id, l.name
		FROM email_labels el
		JOIN labels l ON l.id = el.label_id
		WHERE el.email_id IN (%s)
		ORDER BY l.name
	`, strings.Join(placeholders, ","))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var emailID int64
		var name string
		if err := rows.Scan(&emailID, &name); err != nil {
			return err
		}
		if i, ok := index[emailID]; ok {
			emails[i].Labels = append(emails[i].Labels, name)
		}
	}
	return rows.Err()
}

func (e *SQLiteEngine) SearchAttachments(ctx context.Context, userID string, q AttachmentQuery) ([]AttachmentHit, error) {
	conditions := []string{"e.user_id = ?"}
	args := []interface{}{userID}

	if q.Text != "" {
		pattern := likeContains(q.Text)
		conditions = append(conditions, `(a.filename LIKE ? ESCAPE '\' OR a.content_type LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(q.ContentTypes) > 0 {
		placeholders := make([]string, len(q.ContentTypes))
		for i, ct := range q.ContentTypes {
			placeholders[i] = "?"
			args = append(args, ct)
		}
		conditions = append(conditions, fmt.Sprintf("a.content_type IN (%s)", strings.Join(placeholders, ",")))
	}

	if q.SizeMin != nil {
		conditions = append(conditions, "a.size_bytes >= ?")
		args = append(args, *q.SizeMin)
	}
	if q.SizeMax != nil {
		conditions = append(conditions, "a.size_bytes <= ?")
		args = append(args, *q.SizeMax)
	}

	args = append(args, MaxAttachmentResults)

	query := fmt.Sprintf(`
		SELECT
			a.id,
			a.email_id,
			a.filename,
			COALESCE(a.content_type, ''),
			COALESCE(a.size_bytes, 0),
			COALESCE(e.subject, ''),
			COALESCE(e.sender_name, ''),
			e.received_at
		FROM email_attachments a
		JOIN emails e ON e.id = a.email_id
		WHERE %s
		ORDER BY e.received_at DESC, a.id
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search attachments: %w", err)
	}
	defer rows.Close()

	var hits []AttachmentHit
	for rows.Next() {
		var h AttachmentHit
		var receivedAt sql.NullTime
		if err := rows.Scan(
			&h.ID,
			&h.EmailID,
			&h.Filename,
			&h.ContentType,
			&h.SizeBytes,
			&h.EmailSubject,
			&h.SenderName,
			&receivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		if receivedAt.Valid {
			h.ReceivedAt = receivedAt.Time
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (e *SQLiteEngine) ListAttachments(ctx context.Context, emailIDs []int64) (map[int64][]Attachment, error) {
	if len(emailIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(emailIDs))
	args := make([]interface{}, len(emailIDs))
	for i, id := range emailIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT a.id, a.email_id, a.filename, COALESCE(a.content_type, ''), COALESCE(a.size_bytes, 0)
		FROM email_attachments a
		WHERE a.email_id IN (%s)
		ORDER BY a.email_id, a.id
	`, strings.Join(placeholders, ","))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Attachment)
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.EmailID, &a.Filename, &a.ContentType, &a.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out[a.EmailID] = append(out[a.EmailID], a)
	}
	return out, rows.Err()
}

func (e *SQLiteEngine) Senders(ctx context.Context, userID, partial string, limit int) ([]SenderRow, error) {
	pattern := likeContains(partial)
	rows, err := e.db.QueryContext(ctx, `
		SELECT DISTINCT COALESCE(e.sender_name, ''), COALESCE(e.sender_email, '')
		FROM emails e
		WHERE e.user_id = ?
		  AND (e.sender_name LIKE ? ESCAPE '\' OR e.sender_email LIKE ? ESCAPE '\')
		ORDER BY e.sender_name COLLATE NOCASE
		LIMIT ?
	`, userID, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("sender suggestions: %w", err)
	}
	defer rows.Close()

	var senders []SenderRow
	for rows.Next() {
		var s SenderRow
		if err := rows.Scan(&s.Name, &s.Email); err != nil {
			return nil, fmt.Errorf("scan sender: %w", err)
		}
		senders = append(senders, s)
	}
	return senders, rows.Err()
}

func (e *SQLiteEngine) Subjects(ctx context.Context, userID, partial string, limit int) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT DISTINCT e.subject
		FROM emails e
		WHERE e.user_id = ? AND e.subject LIKE ? ESCAPE '\'
		ORDER BY e.received_at DESC
		LIMIT ?
	`, userID, likeContains(partial), limit)
	if err != nil {
		return nil, fmt.Errorf("subject suggestions: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (e *SQLiteEngine) Labels(ctx context.Context, userID, partial string, limit int) ([]LabelRow, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT l.name, COALESCE(l.color, '')
		FROM labels l
		WHERE l.user_id = ? AND l.name LIKE ? ESCAPE '\'
		ORDER BY l.name COLLATE NOCASE
		LIMIT ?
	`, userID, likeContains(partial), limit)
	if err != nil {
		return nil, fmt.Errorf("label suggestions: %w", err)
	}
	defer rows.Close()

	var labels []LabelRow
	for rows.Next() {
		var l LabelRow
		if err := rows.Scan(&l.Name, &l.Color); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (e *SQLiteEngine) CreateSavedSearch(ctx context.Context, ss *SavedSearch) error {
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO saved_searches (id, user_id, name, query, filters, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ss.ID, ss.UserID, ss.Name, ss.Query, ss.Filters, ss.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create saved search: %w", err)
	}
	return nil
}

func (e *SQLiteEngine) ListSavedSearches(ctx context.Context, userID string) ([]SavedSearch, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, user_id, name, COALESCE(query, ''), COALESCE(filters, '{}'), created_at
		FROM saved_searches
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved searches: %w", err)
	}
	defer rows.Close()

	var searches []SavedSearch
	for rows.Next() {
		var ss SavedSearch
		var createdAt sql.NullTime
		if err := rows.Scan(&ss.ID, &ss.UserID, &ss.Name, &ss.Query, &ss.Filters, &createdAt); err != nil {
			return nil, fmt.Errorf("scan saved search: %w", err)
		}
		if createdAt.Valid {
			ss.CreatedAt = createdAt.Time
		}
		searches = append(searches, ss)
	}
	return searches, rows.Err()
}

// DeleteSavedSearch removes a saved search scoped to its owner.
// Deleting an ID that does not exist (or belongs to someone else) is
// not an error.
func (e *SQLiteEngine) DeleteSavedSearch(ctx context.Context, userID, id string) error {
	_, err := e.db.ExecContext(ctx, `
		DELETE FROM saved_searches WHERE user_id = ? AND id = ?
	`, userID, id)
	if err != nil {
		return fmt.Errorf("delete saved search: %w", err)
	}
	return nil
}

// Compile-time check.
var _ Engine = (*SQLiteEngine)(nil)
