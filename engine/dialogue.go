package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tbxark/interviewagent/session"
	"github.com/tbxark/interviewagent/types"
)

func (e *Engine) initQuestionnaire(ctx context.Context, s *session.Session) reply {
	d, _, err := e.introChain.Invoke(ctx, &types.PromptRequest{
		Total:    len(s.Questions),
		History:  e.historyWindowOf(s),
		Language: s.Language,
	})
	if err != nil {
		return reply{err: err}
	}
	message := fallbackGreeting(len(s.Questions))
	if d != nil && strings.TrimSpace(d.AssistantMessage) != "" {
		message = strings.TrimSpace(d.AssistantMessage)
	}
	s.State = types.StateAwaitingReadiness
	s.CurrentIndex = 0
	s.ResumeIndex = session.NoResume
	s.LastPredictedOption = ""
	s.PendingUtterance = ""
	return reply{message: message, outbound: types.OutboundConfirmReadiness}
}

func (e *Engine) confirmReadiness(ctx context.Context, s *session.Session, utterance string) reply {
	d, _, err := e.readinessChain.Invoke(ctx, &types.PromptRequest{
		Total:     len(s.Questions),
		Utterance: utterance,
		History:   e.historyWindowOf(s),
		Language:  s.Language,
	})
	if err != nil {
		return reply{err: err}
	}

	var ready, decided bool
	var ack string
	if d != nil {
		if a, ok := types.ParseReadinessAction(d.Action); ok {
			ready, decided = a == types.ReadinessReady, true
			ack = strings.TrimSpace(d.AssistantMessage)
		}
	}
	if !decided {
		ready = readyPattern.MatchString(utterance)
		slog.Warn("Readiness fallback", "session_id", s.ID, "ready", ready)
	}

	if !ready {
		if ack == "" {
			ack = notReadyMessage
		}
		return reply{message: ack, outbound: types.OutboundConfirmReadiness}
	}
	if ack == "" {
		ack = readyMessage
	}
	if len(s.Questions) == 0 {
		s.State = types.StateCompleted
		s.CurrentIndex = 0
		return reply{message: emptyQuestionnaireMessage, outbound: types.OutboundComplete}
	}
	return e.moveTo(s, 0, ack, "")
}

// answer classifies an utterance as the answer to the question at idx. idx is
// the current question for plain answers and the named question for re-answers.
func (e *Engine) answer(ctx context.Context, s *session.Session, idx int, utterance string) reply {
	q := s.Questions[idx]
	if r, revoked := e.checkApproval(ctx, s, idx); revoked || r.err != nil {
		return r
	}

	d, _, err := e.answerChain.Invoke(ctx, &types.PromptRequest{
		Question:  &q,
		Position:  idx,
		Total:     len(s.Questions),
		IsLast:    idx == len(s.Questions)-1,
		Utterance: utterance,
		History:   e.historyWindowOf(s),
		Language:  s.Language,
	})
	if err != nil {
		return reply{err: err}
	}
	c := classifyAnswer(q, d, utterance)
	slog.Debug("Classified answer", "session_id", s.ID, "question_id", q.ID, "action", c.action, "fallback", c.fallback)

	switch c.action {
	case types.AnswerAskQuestion, types.AnswerComplete:
		s.RecordResponse(q, c.answer, utterance, e.now())
		return e.moveTo(s, e.nextAfter(s, idx), c.message, q.ID)
	case types.AnswerClarifyAndConfirm:
		e.holdAt(s, idx)
		s.State = types.StateAwaitingConfirmation
		s.LastPredictedOption = c.predicted
		s.PendingUtterance = utterance
		message := c.message
		if message == "" {
			message = fmt.Sprintf(confirmPredictionMessage, c.predicted)
		}
		return reply{message: joinMessage(message, types.FormatQuestion(q)), outbound: types.OutboundClarifyAndConfirm, questionID: q.ID}
	case types.AnswerRepeat:
		e.holdAt(s, idx)
		s.State = types.StateAskingQuestion
		s.LastPredictedOption = ""
		return reply{message: joinMessage(c.message, types.FormatQuestion(q)), outbound: types.OutboundRepeatQuestion, questionID: q.ID}
	default:
		e.holdAt(s, idx)
		s.State = types.StateAskingQuestion
		s.LastPredictedOption = ""
		message := c.message
		if message == "" {
			message = clarifyMessage
		}
		return reply{message: joinMessage(message, types.FormatQuestion(q)), outbound: types.OutboundClarify, questionID: q.ID}
	}
}

func (e *Engine) confirmVague(ctx context.Context, s *session.Session, utterance string) reply {
	q, ok := s.CurrentQuestion()
	if !ok {
		return reply{err: fmt.Errorf("%w: no open question", types.ErrInvalidQuestionContext)}
	}
	idx := s.CurrentIndex
	if s.LastPredictedOption == "" {
		s.State = types.StateAskingQuestion
		return reply{message: restateMessage(s.LastQuestionOptions), outbound: types.OutboundClarify, questionID: q.ID}
	}
	snapshot := *q
	if r, revoked := e.checkApproval(ctx, s, idx); revoked || r.err != nil {
		return r
	}

	predicted := s.LastPredictedOption
	d, _, err := e.confirmChain.Invoke(ctx, &types.PromptRequest{
		Question:        &snapshot,
		Position:        idx,
		Total:           len(s.Questions),
		IsLast:          idx == len(s.Questions)-1,
		Utterance:       utterance,
		PredictedOption: predicted,
		History:         e.historyWindowOf(s),
		Language:        s.Language,
	})
	if err != nil {
		return reply{err: err}
	}
	c := classifyConfirmation(snapshot, predicted, d, utterance)
	slog.Debug("Classified confirmation", "session_id", s.ID, "question_id", snapshot.ID, "action", c.action, "fallback", c.fallback)

	switch c.action {
	case types.ConfirmYes, types.ConfirmNewOption:
		raw := s.PendingUtterance
		if raw == "" || c.action == types.ConfirmNewOption {
			raw = utterance
		}
		s.RecordResponse(snapshot, c.answer, raw, e.now())
		return e.moveTo(s, e.nextAfter(s, idx), c.message, snapshot.ID)
	case types.ConfirmRepeat:
		return reply{message: joinMessage(c.message, types.FormatQuestion(snapshot)), outbound: types.OutboundRepeatQuestion, questionID: snapshot.ID}
	default:
		s.State = types.StateAskingQuestion
		s.LastPredictedOption = ""
		s.PendingUtterance = ""
		message := c.message
		if message == "" {
			message = denyMessage
		}
		return reply{message: joinMessage(message, types.FormatQuestion(snapshot)), outbound: types.OutboundClarify, questionID: snapshot.ID}
	}
}

func (e *Engine) repeatQuestion(s *session.Session) reply {
	q, ok := s.CurrentQuestion()
	if !ok {
		return reply{err: fmt.Errorf("%w: no open question", types.ErrInvalidQuestionContext)}
	}
	s.LastPredictedOption = ""
	s.PendingUtterance = ""
	s.State = types.StateAskingQuestion
	return reply{message: types.FormatQuestion(*q), outbound: types.OutboundRepeatQuestion, questionID: q.ID}
}

func (e *Engine) submit(s *session.Session) reply {
	summary := composeSummary(s.OrderedResponses())
	s.State = types.StateSubmitted
	s.LastPredictedOption = ""
	slog.Info("Session submitted", "session_id", s.ID, "responses", len(s.Responses))
	return reply{message: summary, outbound: types.OutboundSubmitted}
}

func (e *Engine) invalidTransition(s *session.Session, action types.Action) reply {
	message := stateHint(s)
	return reply{
		message:  message,
		outbound: types.OutboundClarify,
		err:      fmt.Errorf("%w: %s in %s", types.ErrInvalidTransition, action, s.State),
	}
}

// checkApproval runs the approval gate for the question at idx. A revoked
// question is removed and the dialogue moves on; revoked reports whether that happened.
func (e *Engine) checkApproval(ctx context.Context, s *session.Session, idx int) (reply, bool) {
	q := s.Questions[idx]
	ok, err := e.gate.Check(ctx, q.ID)
	if err != nil {
		return reply{err: err}, false
	}
	if ok {
		return reply{}, false
	}

	slog.Warn("Question no longer approved, removing from session", "session_id", s.ID, "question_id", q.ID)
	wasDetour := idx != s.CurrentIndex || s.State == types.StateCompleted
	resume := e.resumePosition(s)
	s.RemoveQuestion(idx)
	s.ForgetResponse(q.ID)
	s.LastPredictedOption = ""
	s.PendingUtterance = ""

	next := idx
	switch {
	case s.ResumeIndex != session.NoResume:
		next = s.ResumeIndex
		s.ResumeIndex = session.NoResume
	case wasDetour:
		next = resume
		if resume > idx {
			next = resume - 1
		}
	}
	return e.moveTo(s, next, revokedMessage, ""), true
}

// holdAt keeps the dialogue on question idx. When idx is not the current
// position the current position is remembered so the dialogue can return to it.
func (e *Engine) holdAt(s *session.Session, idx int) {
	if idx == s.CurrentIndex && s.State != types.StateCompleted {
		return
	}
	if s.ResumeIndex == session.NoResume {
		s.ResumeIndex = e.resumePosition(s)
	}
	s.CurrentIndex = idx
}

// resumePosition is where the dialogue continues after a detour.
func (e *Engine) resumePosition(s *session.Session) int {
	if s.State == types.StateCompleted {
		return len(s.Questions)
	}
	return s.CurrentIndex
}

// nextAfter returns the position following an answer to question idx and
// clears any pending detour.
func (e *Engine) nextAfter(s *session.Session, idx int) int {
	if s.ResumeIndex != session.NoResume {
		resume := s.ResumeIndex
		s.ResumeIndex = session.NoResume
		if resume != idx {
			return resume
		}
		return idx + 1
	}
	if idx != s.CurrentIndex || s.State == types.StateCompleted {
		return e.resumePosition(s)
	}
	return idx + 1
}

// moveTo opens the question at next, or completes the questionnaire when
// next is past the end. lead is prepended to the outgoing message.
func (e *Engine) moveTo(s *session.Session, next int, lead, answeredID string) reply {
	s.LastPredictedOption = ""
	s.PendingUtterance = ""
	if next < 0 {
		next = 0
	}
	if next >= len(s.Questions) {
		s.CurrentIndex = len(s.Questions)
		s.State = types.StateCompleted
		s.LastQuestionOptions = nil
		return reply{message: joinMessage(lead, completedMessage), outbound: types.OutboundComplete, questionID: answeredID}
	}
	q := s.Questions[next]
	s.CurrentIndex = next
	s.State = types.StateAskingQuestion
	s.LastQuestionOptions = append([]string(nil), q.Options...)
	return reply{message: joinMessage(lead, types.FormatQuestion(q)), outbound: types.OutboundAskQuestion, questionID: q.ID}
}

func joinMessage(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
