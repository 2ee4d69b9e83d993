// Package session holds per-conversation dialogue state and the keyed store
// that serializes turns on the same session.
package session

import (
	"time"

	"github.com/tbxark/interviewagent/types"
)

// NoResume marks a session that is not on a re-answer detour.
const NoResume = -1

type Session struct {
	ID                  string                         `json:"id"`
	Language            string                         `json:"language"`
	Questions           []types.QuestionSnapshot       `json:"questions"`
	History             []types.Message                `json:"history"`
	Responses           map[string]types.ResponseEntry `json:"responses"`
	AnswerOrder         []string                       `json:"answer_order"`
	CurrentIndex        int                            `json:"current_index"`
	ResumeIndex         int                            `json:"resume_index"`
	LastPredictedOption string                         `json:"last_predicted_option,omitempty"`
	PendingUtterance    string                         `json:"pending_utterance,omitempty"`
	LastQuestionOptions []string                       `json:"last_question_options,omitempty"`
	State               types.State                    `json:"state"`
	Partial             bool                           `json:"partial"`
	CreatedAt           time.Time                      `json:"created_at"`
	UpdatedAt           time.Time                      `json:"updated_at"`
	LastTurn            *TurnRecord                    `json:"last_turn,omitempty"`
}

// TurnRecord remembers the last turn that completed the questionnaire so an
// identical retry can be answered without running it again.
type TurnRecord struct {
	Fingerprint      string         `json:"fingerprint"`
	AssistantMessage string         `json:"assistant_message"`
	Outbound         types.Outbound `json:"outbound"`
	QuestionID       string         `json:"question_id,omitempty"`
}

func New(id, language string, questions []types.QuestionSnapshot, partial bool, now time.Time) *Session {
	return &Session{
		ID:          id,
		Language:    language,
		Questions:   questions,
		Responses:   make(map[string]types.ResponseEntry),
		ResumeIndex: NoResume,
		State:       types.StateNotStarted,
		Partial:     partial,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Questions = make([]types.QuestionSnapshot, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = cloneStrings(q.Options)
		out.Questions[i] = q
	}
	out.History = append([]types.Message(nil), s.History...)
	out.Responses = make(map[string]types.ResponseEntry, len(s.Responses))
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	out.AnswerOrder = cloneStrings(s.AnswerOrder)
	out.LastQuestionOptions = cloneStrings(s.LastQuestionOptions)
	if s.LastTurn != nil {
		record := *s.LastTurn
		out.LastTurn = &record
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// AppendHistory appends a message unless it repeats the last entry.
func (s *Session) AppendHistory(role types.Role, content string) {
	if content == "" {
		return
	}
	if n := len(s.History); n > 0 {
		last := s.History[n-1]
		if last.Role == role && last.Content == content {
			return
		}
	}
	s.History = append(s.History, types.Message{Role: role, Content: content})
}

// CurrentQuestion returns the question at CurrentIndex.
func (s *Session) CurrentQuestion() (*types.QuestionSnapshot, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil, false
	}
	return &s.Questions[s.CurrentIndex], true
}

func (s *Session) QuestionIndex(questionID string) (int, bool) {
	for i, q := range s.Questions {
		if q.ID == questionID {
			return i, true
		}
	}
	return -1, false
}

// RemoveQuestion drops the question at index i, keeping CurrentIndex and
// ResumeIndex pointing at the same remaining questions.
func (s *Session) RemoveQuestion(i int) {
	if i < 0 || i >= len(s.Questions) {
		return
	}
	s.Questions = append(s.Questions[:i:i], s.Questions[i+1:]...)
	if s.ResumeIndex > i {
		s.ResumeIndex--
	}
	if s.CurrentIndex > i {
		s.CurrentIndex--
	}
}

// RecordResponse stores an answer keyed by question id, keeping first-answer order.
func (s *Session) RecordResponse(q types.QuestionSnapshot, answer, raw string, now time.Time) {
	if _, ok := s.Responses[q.ID]; !ok {
		s.AnswerOrder = append(s.AnswerOrder, q.ID)
	}
	s.Responses[q.ID] = types.ResponseEntry{
		Question:   q.Text,
		Answer:     answer,
		Raw:        raw,
		AnsweredAt: now,
	}
}

// OrderedResponses returns responses in the order questions were first answered.
func (s *Session) OrderedResponses() []types.ResponseEntry {
	out := make([]types.ResponseEntry, 0, len(s.AnswerOrder))
	for _, id := range s.AnswerOrder {
		if r, ok := s.Responses[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ForgetResponse removes the answer recorded for a question.
func (s *Session) ForgetResponse(questionID string) {
	if _, ok := s.Responses[questionID]; !ok {
		return
	}
	delete(s.Responses, questionID)
	order := s.AnswerOrder[:0:0]
	for _, id := range s.AnswerOrder {
		if id != questionID {
			order = append(order, id)
		}
	}
	s.AnswerOrder = order
}
