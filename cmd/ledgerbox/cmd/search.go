package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/search"
	"github.com/ledgerbox/ledgerbox/internal/searchsvc"
	"github.com/ledgerbox/ledgerbox/internal/store"
)

var (
	searchUser    string
	searchLimit   int
	searchPage    int
	searchJSON    bool
	searchSender  string
	searchFolder  string
	searchLabels  []string
	searchStarred bool
	searchUnread  bool
	searchAfter   string
	searchBefore  string
)

var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Search emails from the command line",
	Long: `Run a one-shot ranked search against the email archive.

Bare terms perform full-text search over subject, body, and sender.
Filters narrow the result set.

Examples:
  ledgerbox search invoice overdue
  ledgerbox search --sender acme --starred
  ledgerbox search quote --after 2026-01-01 --label billing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		filters := search.FilterSet{
			Sender: searchSender,
			Folder: searchFolder,
			Labels: searchLabels,
		}
		if cmd.Flags().Changed("starred") {
			filters.IsStarred = &searchStarred
		}
		if cmd.Flags().Changed("unread") {
			read := !searchUnread
			filters.IsRead = &read
		}
		if searchAfter != "" {
			t, err := search.ParseDate("after", searchAfter)
			if err != nil {
				return err
			}
			filters.DateFrom = t
		}
		if searchBefore != "" {
			t, err := search.ParseDate("before", searchBefore)
			if err != nil {
				return err
			}
			filters.DateTo = t
		}

		s, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		engine := query.NewSQLiteEngine(s.DB())
		defer engine.Close()

		svc := searchsvc.New(engine).WithLogger(logger)

		resp, err := svc.Search(cmd.Context(), searchUser, searchsvc.Params{
			Text:     text,
			Filters:  filters,
			Page:     searchPage,
			PageSize: searchLimit,
		})
		if err != nil {
			return err
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		if len(resp.Results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tDATE\tFROM\tSUBJECT")
		for _, r := range resp.Results {
			sender := r.SenderName
			if sender == "" {
				sender = r.SenderEmail
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				r.RelevanceScore,
				r.ReceivedAt.Local().Format("2006-01-02"),
				sender,
				r.Subject,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\n%d of %d results", len(resp.Results), resp.Total)
		if resp.HasMore {
			fmt.Printf(" (use --page %d for more)", searchPage+1)
		}
		fmt.Println()

		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchUser, "user", "default", "user scope for history and saved searches")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results per page")
	searchCmd.Flags().IntVar(&searchPage, "page", 0, "zero-based page index")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchSender, "sender", "", "filter by sender name or email")
	searchCmd.Flags().StringVar(&searchFolder, "folder", "", "filter by folder")
	searchCmd.Flags().StringArrayVar(&searchLabels, "label", nil, "require a label (repeatable)")
	searchCmd.Flags().BoolVar(&searchStarred, "starred", false, "only starred emails")
	searchCmd.Flags().BoolVar(&searchUnread, "unread", false, "only unread emails")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "received on or after date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "received on or before date (YYYY-MM-DD)")
	rootCmd.AddCommand(searchCmd)
}
