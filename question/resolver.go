package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tbxark/interviewagent/types"
)

// Resolution is the question set a new session starts with.
type Resolution struct {
	Questions []types.QuestionSnapshot
	// Partial is set when no fully-approved group existed and questions were
	// admitted on their own approval, possibly without all translations.
	Partial bool
}

type Resolver struct {
	repo         Repository
	allowPartial bool
	timeout      time.Duration
}

type ResolverOption func(*Resolver)

// WithPartialGroups controls the per-question approval fallback.
func WithPartialGroups(allow bool) ResolverOption {
	return func(r *Resolver) {
		r.allowPartial = allow
	}
}

// WithResolverTimeout bounds the repository reads of one Resolve call.
func WithResolverTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

func NewResolver(repo Repository, opts ...ResolverOption) *Resolver {
	r := &Resolver{repo: repo, allowPartial: true}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve loads the eligible questions for a language in creation order.
func (r *Resolver) Resolve(ctx context.Context, language string) (*Resolution, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	questions, err := r.repo.FullyApprovedQuestions(ctx, language)
	if err != nil {
		return nil, fmt.Errorf("%w: load approved groups: %w", types.ErrSessionCreationFailed, err)
	}
	partial := false
	if len(questions) == 0 && r.allowPartial {
		questions, err = r.repo.ApprovedQuestions(ctx, language)
		if err != nil {
			return nil, fmt.Errorf("%w: load approved questions: %w", types.ErrSessionCreationFailed, err)
		}
		if len(questions) > 0 {
			partial = true
			slog.Warn("No fully approved question group, using per-question approval",
				"language", language, "questions", len(questions))
		}
	}

	snapshots := make([]types.QuestionSnapshot, 0, len(questions))
	for _, q := range questions {
		snap := types.QuestionSnapshot{
			ID:       q.ID,
			Text:     q.Text,
			Type:     q.Type,
			Language: q.Language,
			GroupID:  q.GroupID,
		}
		if q.Type == types.QuestionChoice {
			opts, err := r.repo.ApprovedOptions(ctx, q.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: load options for %s: %w", types.ErrSessionCreationFailed, q.ID, err)
			}
			if len(opts) == 0 {
				slog.Debug("Dropping choice question without approved options", "question_id", q.ID)
				continue
			}
			for _, o := range opts {
				snap.Options = append(snap.Options, o.Text)
			}
		}
		snapshots = append(snapshots, snap)
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w for language %q", types.ErrNoEligibleQuestions, language)
	}
	return &Resolution{Questions: snapshots, Partial: partial}, nil
}

// ApprovalGate re-checks a question's approval when it is about to be answered.
type ApprovalGate struct {
	repo    Repository
	timeout time.Duration
}

func NewApprovalGate(repo Repository, timeout time.Duration) *ApprovalGate {
	return &ApprovalGate{repo: repo, timeout: timeout}
}

// Check reports whether the question is still approved and, for choice
// questions, still has an approved option. Deleted questions are not approved.
func (g *ApprovalGate) Check(ctx context.Context, questionID string) (bool, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	q, err := g.repo.Question(ctx, questionID)
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", types.ErrRepositoryUnavailable, err)
	}
	if !q.IsApproved() {
		return false, nil
	}
	if q.Type != types.QuestionChoice {
		return true, nil
	}
	opts, err := g.repo.ApprovedOptions(ctx, questionID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", types.ErrRepositoryUnavailable, err)
	}
	return len(opts) > 0, nil
}
