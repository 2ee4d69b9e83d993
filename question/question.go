// Package question holds the read contract of the question repository, its
// in-memory and SQLite implementations, the session question resolver and
// the answer-time approval gate.
package question

import (
	"context"
	"errors"
	"time"

	"github.com/tbxark/interviewagent/types"
)

// Status is the review status of a question or option.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusError    Status = "error"
)

var ErrQuestionNotFound = errors.New("question not found")

// Question is one language variant of a question group.
type Question struct {
	ID        string             `json:"id" yaml:"id"`
	GroupID   string             `json:"group_id" yaml:"group_id"`
	Language  string             `json:"language" yaml:"language"`
	Text      string             `json:"text" yaml:"text"`
	Type      types.QuestionType `json:"type" yaml:"type"`
	Approved  bool               `json:"approved" yaml:"approved"`
	Status    Status             `json:"status" yaml:"status"`
	CreatedAt time.Time          `json:"created_at" yaml:"-"`
}

func (q Question) IsApproved() bool {
	return q.Approved && q.Status == StatusApproved
}

type Option struct {
	ID         string `json:"id" yaml:"id"`
	QuestionID string `json:"question_id" yaml:"-"`
	Text       string `json:"text" yaml:"text"`
	Approved   bool   `json:"approved" yaml:"approved"`
	Status     Status `json:"status" yaml:"status"`
}

func (o Option) IsApproved() bool {
	return o.Approved && o.Status == StatusApproved
}

// Repository is the read side of question storage. All lists are in creation order.
type Repository interface {
	// FullyApprovedQuestions returns approved questions of a language whose
	// whole group is approved, choice variants included only with an approved option.
	FullyApprovedQuestions(ctx context.Context, language string) ([]Question, error)
	// ApprovedQuestions returns approved questions of a language ignoring their group.
	ApprovedQuestions(ctx context.Context, language string) ([]Question, error)
	ApprovedOptions(ctx context.Context, questionID string) ([]Option, error)
	// Question returns ErrQuestionNotFound for unknown ids.
	Question(ctx context.Context, questionID string) (*Question, error)
}

// Writer is the minimal write side used for seeding and approval changes.
type Writer interface {
	AddQuestion(ctx context.Context, q Question) error
	AddOption(ctx context.Context, o Option) error
	SetQuestionApproval(ctx context.Context, questionID string, approved bool, status Status) error
	SetOptionApproval(ctx context.Context, optionID string, approved bool, status Status) error
}

// fullyApproved reports whether every variant is approved and every choice
// variant has at least one approved option.
func fullyApproved(variants []Question, options map[string][]Option) bool {
	if len(variants) == 0 {
		return false
	}
	for _, v := range variants {
		if !v.IsApproved() {
			return false
		}
		if v.Type != types.QuestionChoice {
			continue
		}
		hasOption := false
		for _, o := range options[v.ID] {
			if o.IsApproved() {
				hasOption = true
				break
			}
		}
		if !hasOption {
			return false
		}
	}
	return true
}
