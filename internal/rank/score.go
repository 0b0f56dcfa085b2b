// Package rank orders search results by a heuristic relevance score
// and highlights matched terms in result text.
package rank

import (
	"sort"
	"strings"
	"time"

	"github.com/ledgerbox/ledgerbox/internal/query"
)

// Score weights. Term frequency counts once per occurrence; the
// bonuses below stack on top of it.
const (
	subjectBonus   = 5 // per term contained in the subject
	senderBonus    = 3 // per term contained in the sender name
	recentBonus    = 2 // received within the last 7 days
	thisMonthBonus = 1 // received within the last 30 days
	importantBonus = 3
	starredBonus   = 2
	minScore       = 1
)

// ScoredEmail is an email summary with its relevance score attached.
type ScoredEmail struct {
	query.EmailSummary
	RelevanceScore int
}

// Scorer computes relevance scores. The zero value scores against the
// current time; set Now to control recency bonuses in tests.
type Scorer struct {
	Now func() time.Time
}

// NewScorer creates a Scorer with default settings.
func NewScorer() *Scorer {
	return &Scorer{Now: time.Now}
}

// Score computes the relevance of one email for the given lowercased
// query terms.
func (s *Scorer) Score(e query.EmailSummary, terms []string) int {
	score := 0
	haystack := strings.ToLower(strings.Join([]string{
		e.Subject, e.Content, e.SenderName, e.SenderEmail,
	}, " "))
	subject := strings.ToLower(e.Subject)
	sender := strings.ToLower(e.SenderName)

	for _, term := range terms {
		term = strings.ToLower(term)
		score += strings.Count(haystack, term)
		if strings.Contains(subject, term) {
			score += subjectBonus
		}
		if strings.Contains(sender, term) {
			score += senderBonus
		}
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if age := now.Sub(e.ReceivedAt); age < 7*24*time.Hour {
		score += recentBonus
	} else if age < 30*24*time.Hour {
		score += thisMonthBonus
	}

	if e.IsImportant {
		score += importantBonus
	}
	if e.IsStarred {
		score += starredBonus
	}

	if score < minScore {
		score = minScore
	}
	return score
}

// Rank scores each email and returns them ordered by descending score.
// The sort is stable: ties keep the store's original order. With no
// terms, every email scores 1 and the input order is preserved.
func (s *Scorer) Rank(emails []query.EmailSummary, terms []string) []ScoredEmail {
	scored := make([]ScoredEmail, len(emails))
	if len(terms) == 0 {
		for i, e := range emails {
			scored[i] = ScoredEmail{EmailSummary: e, RelevanceScore: minScore}
		}
		return scored
	}

	for i, e := range emails {
		scored[i] = ScoredEmail{EmailSummary: e, RelevanceScore: s.Score(e, terms)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	return scored
}
