package query

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testEnv encapsulates the DB, Engine, and Context setup for tests.
type testEnv struct {
	DB     *sql.DB
	Engine *SQLiteEngine
	Ctx    context.Context
	T      *testing.T
}

// newTestEnv creates a test environment with an in-memory SQLite
// database and inbox fixtures for two users.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })
	return &testEnv{
		DB:     db,
		Engine: NewSQLiteEngine(db),
		Ctx:    context.Background(),
		T:      t,
	}
}

// fixtureNow anchors the fixture timestamps so date-range tests are
// deterministic.
var fixtureNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory SQLite database with test data.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
		CREATE TABLE emails (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			folder_id TEXT,
			client_id TEXT,
			subject TEXT,
			content_text TEXT,
			sender_name TEXT,
			sender_email TEXT,
			recipient_emails TEXT,
			received_at DATETIME,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			is_starred BOOLEAN NOT NULL DEFAULT 0,
			is_important BOOLEAN NOT NULL DEFAULT 0,
			attachment_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE email_attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email_id INTEGER NOT NULL,
			filename TEXT NOT NULL,
			content_type TEXT,
			size_bytes INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE labels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			color TEXT,
			UNIQUE (user_id, name)
		);

		CREATE TABLE email_labels (
			email_id INTEGER NOT NULL,
			label_id INTEGER NOT NULL,
			PRIMARY KEY (email_id, label_id)
		);

		CREATE TABLE saved_searches (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			query TEXT,
			filters TEXT,
			created_at DATETIME NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	type email struct {
		id          int64
		user        string
		folder      string
		client      string
		subject     string
		content     string
		senderName  string
		senderEmail string
		recipients  string
		receivedAgo time.Duration
		size        int64
		read        bool
		starred     bool
		important   bool
		attachments int
	}

	emails := []email{
		{
			id: 1, user: "u1", folder: "inbox", client: "client-acme",
			subject: "Invoice #1042 overdue", content: "Your invoice is now 30 days overdue. Please remit payment.",
			senderName: "Acme Billing", senderEmail: "billing@acme.com",
			recipients: "dana@ledgerbox.test", receivedAgo: 24 * time.Hour,
			size: 2048, important: true, attachments: 1,
		},
		{
			id: 2, user: "u1", folder: "inbox", client: "client-mason",
			subject: "Quote for spring landscaping", content: "Attached is the quote you requested.",
			senderName: "Bob Mason", senderEmail: "bob@mason.dev",
			recipients: "dana@ledgerbox.test", receivedAgo: 10 * 24 * time.Hour,
			size: 4096, read: true, starred: true, attachments: 2,
		},
		{
			id: 3, user: "u1", folder: "inbox", client: "client-acme",
			subject: "Re: invoice question", content: "Following up on the invoice from acme last month.",
			senderName: "Client Jane", senderEmail: "jane@client.io",
			recipients: "dana@ledgerbox.test, accounts@ledgerbox.test", receivedAgo: 45 * 24 * time.Hour,
			size: 1024, read: true,
		},
		{
			id: 4, user: "u1", folder: "spam", client: "",
			subject: "100% discount_offer inside", content: "Claim your 100% discount_offer today!",
			senderName: "Deals Bot", senderEmail: "noreply@bulk.example",
			recipients: "dana@ledgerbox.test", receivedAgo: 2 * 24 * time.Hour,
			size: 512,
		},
		{
			id: 5, user: "u2", folder: "inbox", client: "",
			subject: "Invoice for consulting", content: "Other user's invoice.",
			senderName: "Someone Else", senderEmail: "else@example.com",
			recipients: "other@ledgerbox.test", receivedAgo: 24 * time.Hour,
			size: 256,
		},
	}

	for _, e := range emails {
		_, err := db.Exec(`
			INSERT INTO emails (
				id, user_id, folder_id, client_id, subject, content_text,
				sender_name, sender_email, recipient_emails, received_at,
				size_bytes, is_read, is_starred, is_important, attachment_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.id, e.user, e.folder, e.client, e.subject, e.content,
			e.senderName, e.senderEmail, e.recipients, fixtureNow.Add(-e.receivedAgo),
			e.size, e.read, e.starred, e.important, e.attachments)
		if err != nil {
			t.Fatalf("insert email %d: %v", e.id, err)
		}
	}

	// Attachment rows line up with the attachment_count fixtures above.
	attachments := []struct {
		id          int64
		emailID     int64
		filename    string
		contentType string
		size        int64
	}{
		{1, 1, "invoice-1042.pdf", "application/pdf", 52000},
		{2, 2, "quote-spring.pdf", "application/pdf", 81000},
		{3, 2, "site-photo.jpg", "image/jpeg", 450000},
		{4, 5, "other-invoice.pdf", "application/pdf", 9000},
	}
	for _, a := range attachments {
		if _, err := db.Exec(
			"INSERT INTO email_attachments (id, email_id, filename, content_type, size_bytes) VALUES (?, ?, ?, ?, ?)",
			a.id, a.emailID, a.filename, a.contentType, a.size,
		); err != nil {
			t.Fatalf("insert attachment %s: %v", a.filename, err)
		}
	}

	labels := []struct {
		id    int64
		user  string
		name  string
		color string
	}{
		{1, "u1", "billing", "#f59e0b"},
		{2, "u1", "clients", "#3b82f6"},
		{3, "u2", "billing", "#f59e0b"},
	}
	for _, l := range labels {
		if _, err := db.Exec(
			"INSERT INTO labels (id, user_id, name, color) VALUES (?, ?, ?, ?)",
			l.id, l.user, l.name, l.color,
		); err != nil {
			t.Fatalf("insert label %s: %v", l.name, err)
		}
	}

	emailLabels := [][2]int64{{1, 1}, {3, 1}, {3, 2}}
	for _, el := range emailLabels {
		if _, err := db.Exec(
			"INSERT INTO email_labels (email_id, label_id) VALUES (?, ?)",
			el[0], el[1],
		); err != nil {
			t.Fatalf("insert email_label %v: %v", el, err)
		}
	}

	return db
}

// ids extracts the IDs of a result list, in order.
func ids(emails []EmailSummary) []int64 {
	if len(emails) == 0 {
		return nil
	}
	out := make([]int64, len(emails))
	for i, e := range emails {
		out[i] = e.ID
	}
	return out
}
