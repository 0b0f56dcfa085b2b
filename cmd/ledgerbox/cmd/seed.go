package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerbox/ledgerbox/internal/store"
)

var (
	seedUserFlag  string
	seedCountFlag int
	seedSeedFlag  int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with sample emails for development",
	Long: `Populate the ledgerbox database with generated sample emails,
labels, and label assignments.

The generator is deterministic for a given --seed value, so repeated
runs with the same flags produce the same dataset. Intended for local
development and demos, not production.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedUserFlag, "user", "default", "user ID to seed emails for")
	seedCmd.Flags().IntVar(&seedCountFlag, "count", 200, "number of emails to generate")
	seedCmd.Flags().Int64Var(&seedSeedFlag, "seed", 1, "random seed for the generator")
	rootCmd.AddCommand(seedCmd)
}

var seedSenders = []struct {
	name  string
	email string
}{
	{"Acme Billing", "billing@acme.example"},
	{"Northwind Accounts", "accounts@northwind.example"},
	{"Lakeside Garden Supply", "orders@lakeside.example"},
	{"Maria Sanchez", "maria@sanchezlandscaping.example"},
	{"City Permits Office", "permits@city.example"},
	{"Evergreen Nursery", "sales@evergreen.example"},
}

var seedSubjects = []string{
	"Invoice #%d for landscaping services",
	"Quote request: spring cleanup #%d",
	"Payment received for invoice #%d",
	"Overdue notice: invoice #%d",
	"Updated estimate #%d for irrigation work",
	"Purchase order #%d confirmation",
	"Schedule change for job #%d",
}

var seedBodies = []string{
	"Please find attached the invoice for work completed last week. Payment is due within 30 days.",
	"We would like a quote for seasonal maintenance at the property. Can you visit next week?",
	"This confirms we received your payment. Thank you for your business.",
	"Our records show this invoice is past due. Please remit payment at your earliest convenience.",
	"The revised estimate reflects the additional materials discussed on site.",
}

var seedFolders = []string{"inbox", "inbox", "inbox", "archive", "sent"}

var seedLabels = []struct {
	name  string
	color string
}{
	{"billing", "#d93025"},
	{"clients", "#1a73e8"},
	{"quotes", "#188038"},
	{"follow-up", "#f9ab00"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedCountFlag <= 0 {
		return fmt.Errorf("--count must be a positive integer, got %d", seedCountFlag)
	}

	dbPath := cfg.DatabasePath()
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	if err := s.InitSchema(); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	rng := rand.New(rand.NewSource(seedSeedFlag))
	now := time.Now().UTC()

	tx, err := s.DB().Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	labelIDs := make([]int64, 0, len(seedLabels))
	for _, l := range seedLabels {
		if _, err := tx.Exec(
			`INSERT INTO labels (user_id, name, color) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, name) DO NOTHING`,
			seedUserFlag, l.name, l.color,
		); err != nil {
			return fmt.Errorf("insert label %q: %w", l.name, err)
		}
		var id int64
		if err := tx.QueryRow(
			`SELECT id FROM labels WHERE user_id = ? AND name = ?`,
			seedUserFlag, l.name,
		).Scan(&id); err != nil {
			return fmt.Errorf("look up label %q: %w", l.name, err)
		}
		labelIDs = append(labelIDs, id)
	}

	clients := []string{"client-acme", "client-northwind", "client-sanchez", ""}

	for i := 0; i < seedCountFlag; i++ {
		sender := seedSenders[rng.Intn(len(seedSenders))]
		subject := fmt.Sprintf(seedSubjects[rng.Intn(len(seedSubjects))], 1000+rng.Intn(9000))
		body := seedBodies[rng.Intn(len(seedBodies))]
		folder := seedFolders[rng.Intn(len(seedFolders))]
		client := clients[rng.Intn(len(clients))]
		receivedAt := now.Add(-time.Duration(rng.Intn(365*24)) * time.Hour)

		res, err := tx.Exec(
			`INSERT INTO emails (user_id, folder_id, client_id, subject, content_text,
			    sender_name, sender_email, recipient_emails, received_at, size_bytes,
			    is_read, is_starred, is_important, attachment_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seedUserFlag, folder, nullIfEmpty(client), subject, body,
			sender.name, sender.email, "me@ledgerbox.example", receivedAt,
			500+rng.Intn(50000), rng.Intn(4) != 0, rng.Intn(10) == 0,
			rng.Intn(8) == 0, rng.Intn(3),
		)
		if err != nil {
			return fmt.Errorf("insert email %d: %w", i, err)
		}

		// Roughly a third of emails get one label.
		if rng.Intn(3) == 0 {
			emailID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("email %d id: %w", i, err)
			}
			labelID := labelIDs[rng.Intn(len(labelIDs))]
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO email_labels (email_id, label_id) VALUES (?, ?)`,
				emailID, labelID,
			); err != nil {
				return fmt.Errorf("label email %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logger.Info("seeded database", "user", seedUserFlag, "emails", seedCountFlag)
	fmt.Printf("Seeded %d emails for user %q in %s\n", seedCountFlag, seedUserFlag, dbPath)
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
