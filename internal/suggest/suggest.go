// Package suggest produces typeahead suggestions from a user's
// senders, subjects, and labels.
package suggest

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerbox/ledgerbox/internal/query"
)

// MinPartialLength is the minimum partial-input length (in runes)
// before suggestions are produced.
const MinPartialLength = 2

// PerSourceLimit caps each suggestion source.
const PerSourceLimit = 5

// MaxSuggestions caps the merged suggestion list.
const MaxSuggestions = 10

// Type discriminates suggestion sources.
type Type string

const (
	TypeSender  Type = "sender"
	TypeSubject Type = "subject"
	TypeLabel   Type = "label"
)

// Suggestion is one typeahead candidate.
type Suggestion struct {
	Type  Type   `json:"type"`
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Engine merges suggestions from the three store-backed sources.
// Sources are queried concurrently; a failing source is logged and
// contributes nothing, without blocking the others.
type Engine struct {
	source query.Engine
	logger *slog.Logger
}

// New creates a suggestion engine over the given query source.
func New(source query.Engine) *Engine {
	return &Engine{source: source, logger: slog.Default()}
}

// WithLogger sets the logger for the engine.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// Suggest returns up to MaxSuggestions candidates matching partial,
// ordered senders, then subjects, then labels. Partials shorter than
// MinPartialLength yield nothing.
func (e *Engine) Suggest(ctx context.Context, userID, partial string) ([]Suggestion, error) {
	if utf8.RuneCountInString(partial) < MinPartialLength {
		return nil, nil
	}

	var (
		senders  []query.SenderRow
		subjects []string
		labels   []query.LabelRow
	)

	// Each source swallows its own failure so one broken query cannot
	// take typeahead down entirely.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.source.Senders(gctx, userID, partial, PerSourceLimit)
		if err != nil {
			e.logger.Warn("sender suggestions failed", "error", err)
			return nil
		}
		senders = rows
		return nil
	})
	g.Go(func() error {
		rows, err := e.source.Subjects(gctx, userID, partial, PerSourceLimit)
		if err != nil {
			e.logger.Warn("subject suggestions failed", "error", err)
			return nil
		}
		subjects = rows
		return nil
	})
	g.Go(func() error {
		rows, err := e.source.Labels(gctx, userID, partial, PerSourceLimit)
		if err != nil {
			e.logger.Warn("label suggestions failed", "error", err)
			return nil
		}
		labels = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(senders)+len(subjects)+len(labels))
	for _, s := range senders {
		value := s.Name
		if value == "" {
			value = s.Email
		}
		suggestions = append(suggestions, Suggestion{
			Type:  TypeSender,
			Value: value,
			Label: "From: " + value,
		})
	}
	for _, subj := range subjects {
		suggestions = append(suggestions, Suggestion{
			Type:  TypeSubject,
			Value: subj,
			Label: "Subject: " + subj,
		})
	}
	for _, l := range labels {
		suggestions = append(suggestions, Suggestion{
			Type:  TypeLabel,
			Value: l.Name,
			Label: "Label: " + l.Name,
			Color: l.Color,
		})
	}

	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions, nil
}
