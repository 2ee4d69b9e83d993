package question

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository is an in-memory repository for tests and local usage.
type MemoryRepository struct {
	mu        sync.RWMutex
	questions []Question
	options   map[string][]Option
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{options: make(map[string][]Option)}
}

func (r *MemoryRepository) AddQuestion(ctx context.Context, q Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.questions {
		if existing.ID == q.ID {
			return fmt.Errorf("question %s already exists", q.ID)
		}
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	r.questions = append(r.questions, q)
	return nil
}

func (r *MemoryRepository) AddOption(ctx context.Context, o Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(o.QuestionID) < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, o.QuestionID)
	}
	r.options[o.QuestionID] = append(r.options[o.QuestionID], o)
	return nil
}

func (r *MemoryRepository) SetQuestionApproval(ctx context.Context, questionID string, approved bool, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(questionID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	r.questions[i].Approved = approved
	r.questions[i].Status = status
	return nil
}

func (r *MemoryRepository) SetOptionApproval(ctx context.Context, optionID string, approved bool, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for qid, opts := range r.options {
		for i := range opts {
			if opts[i].ID == optionID {
				r.options[qid][i].Approved = approved
				r.options[qid][i].Status = status
				return nil
			}
		}
	}
	return fmt.Errorf("option not found: %s", optionID)
}

func (r *MemoryRepository) FullyApprovedQuestions(ctx context.Context, language string) ([]Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := make(map[string][]Question)
	for _, q := range r.questions {
		groups[q.GroupID] = append(groups[q.GroupID], q)
	}
	var out []Question
	for _, q := range r.questions {
		if q.Language != language || !q.IsApproved() {
			continue
		}
		if fullyApproved(groups[q.GroupID], r.options) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ApprovedQuestions(ctx context.Context, language string) ([]Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Question
	for _, q := range r.questions {
		if q.Language == language && q.IsApproved() {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ApprovedOptions(ctx context.Context, questionID string) ([]Option, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Option
	for _, o := range r.options[questionID] {
		if o.IsApproved() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Question(ctx context.Context, questionID string) (*Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(questionID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	q := r.questions[i]
	return &q, nil
}

func (r *MemoryRepository) indexOf(questionID string) int {
	for i, q := range r.questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Writer     = (*MemoryRepository)(nil)
)
