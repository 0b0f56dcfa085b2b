package query

import (
	"strings"
	"testing"

	"github.com/ledgerbox/ledgerbox/internal/search"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"discount_offer", `discount\_offer`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestWildcardTermsMatchLiterally ensures user-supplied LIKE wildcards
// are treated as literal characters, not as match-all patterns.
func TestWildcardTermsMatchLiterally(t *testing.T) {
	env := newTestEnv(t)

	// "100%" appears literally only in email 4. An unescaped "%" would
	// match every email starting with "100".
	got, err := env.Engine.ListEmails(env.Ctx, "u1", mustBuild(t, "100%", search.FilterSet{}), Page{})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("got IDs %v, want [4]", ids(got))
	}

	// A bare "%" matches nothing in the fixtures except email 4's
	// literal percent sign.
	got, err = env.Engine.ListEmails(env.Ctx, "u1", mustBuild(t, "%", search.FilterSet{}), Page{})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("bare %% matched IDs %v, want [4]", ids(got))
	}

	// Underscore is a single-character wildcard in LIKE; make sure
	// "discount_offer" does not match "discountXoffer"-style content.
	got, err = env.Engine.ListEmails(env.Ctx, "u1", mustBuild(t, "discount_offer", search.FilterSet{}), Page{})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("got IDs %v, want [4]", ids(got))
	}
}

// TestFilterWildcardsEscaped covers escaping in filter predicates, not
// just free-text terms.
func TestFilterWildcardsEscaped(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.Engine.ListEmails(env.Ctx, "u1", mustBuild(t, "", search.FilterSet{Subject: "100%"}), Page{})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("subject filter got IDs %v, want [4]", ids(got))
	}

	got, err = env.Engine.ListEmails(env.Ctx, "u1", mustBuild(t, "", search.FilterSet{Sender: "%"}), Page{})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("sender %% filter matched IDs %v, want none", ids(got))
	}
}

// TestInvalidSortRejected ensures out-of-range sort enums produce an
// error instead of being interpolated into SQL.
func TestInvalidSortRejected(t *testing.T) {
	env := newTestEnv(t)
	q := mustBuild(t, "", search.FilterSet{Folder: "inbox"})

	_, err := env.Engine.ListEmails(env.Ctx, "u1", q, Page{SortField: SortField(999)})
	if err == nil || !strings.Contains(err.Error(), "unsupported sort field") {
		t.Errorf("invalid sort field: got %v, want unsupported sort field error", err)
	}

	_, err = env.Engine.ListEmails(env.Ctx, "u1", q, Page{SortDirection: SortDirection(999)})
	if err == nil || !strings.Contains(err.Error(), "unsupported sort direction") {
		t.Errorf("invalid sort direction: got %v, want unsupported sort direction error", err)
	}
}
