// Package engine runs the questionnaire dialogue: one turn at a time, per
// session, with the session held exclusively for the whole turn.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/tbxark/interviewagent/llm"
	"github.com/tbxark/interviewagent/prompt"
	"github.com/tbxark/interviewagent/question"
	"github.com/tbxark/interviewagent/session"
	"github.com/tbxark/interviewagent/structured"
	"github.com/tbxark/interviewagent/types"
)

type Resolver interface {
	Resolve(ctx context.Context, language string) (*question.Resolution, error)
}

type Gate interface {
	Check(ctx context.Context, questionID string) (bool, error)
}

type Config struct {
	Store     session.Store
	Resolver  Resolver
	Gate      Gate
	Generator llm.Generator
	Prompts   *prompt.Builder

	// GenerationTimeout bounds every generation call. Zero leaves calls unbounded.
	GenerationTimeout time.Duration
	// HistoryWindow is how many recent messages are shown to the model.
	HistoryWindow int
	// OnAudit receives a JSON merge patch of the session for every committed turn.
	OnAudit func(sessionID string, patch []byte)
	Now     func() time.Time
}

type decisionChain = structured.Chain[*types.PromptRequest, types.Decision]

type Engine struct {
	store         session.Store
	resolver      Resolver
	gate          Gate
	historyWindow int
	onAudit       func(sessionID string, patch []byte)
	now           func() time.Time

	introChain     *decisionChain
	readinessChain *decisionChain
	answerChain    *decisionChain
	confirmChain   *decisionChain
}

func New(conf Config) (*Engine, error) {
	if conf.Store == nil || conf.Resolver == nil || conf.Gate == nil || conf.Generator == nil {
		return nil, fmt.Errorf("engine: store, resolver, gate and generator are required")
	}
	prompts := conf.Prompts
	if prompts == nil {
		var err error
		prompts, err = prompt.NewBuilder()
		if err != nil {
			return nil, fmt.Errorf("create prompt builder: %w", err)
		}
	}
	gen := llm.WithTimeout(conf.Generator, conf.GenerationTimeout)
	now := conf.Now
	if now == nil {
		now = time.Now
	}
	window := conf.HistoryWindow
	if window == 0 {
		window = 10
	}
	chain := func(build func(*types.PromptRequest) prompt.Prompt) *decisionChain {
		return structured.NewChain[*types.PromptRequest, types.Decision](gen,
			func(ctx context.Context, req *types.PromptRequest) (prompt.Prompt, error) {
				return build(req), nil
			})
	}
	return &Engine{
		store:          conf.Store,
		resolver:       conf.Resolver,
		gate:           conf.Gate,
		historyWindow:  window,
		onAudit:        conf.OnAudit,
		now:            now,
		introChain:     chain(prompts.ReadinessIntro),
		readinessChain: chain(prompts.ReadinessConfirmation),
		answerChain:    chain(prompts.AnswerClassification),
		confirmChain:   chain(prompts.VagueConfirmation),
	}, nil
}

type StartResult struct {
	SessionID      string `json:"session_id"`
	TotalQuestions int    `json:"total_questions"`
	Partial        bool   `json:"partial,omitempty"`
}

// StartSession resolves the eligible questions for a language and creates a session.
func (e *Engine) StartSession(ctx context.Context, language string) (*StartResult, error) {
	language = strings.TrimSpace(language)
	res, err := e.resolver.Resolve(ctx, language)
	if err != nil {
		slog.Error("Failed to resolve questions", "language", language, "error", err)
		return nil, err
	}
	id, err := e.store.Create(ctx, language, res.Questions, res.Partial)
	if err != nil {
		return nil, err
	}
	slog.Info("Session created", "session_id", id, "language", language,
		"questions", len(res.Questions), "partial", res.Partial)
	return &StartResult{SessionID: id, TotalQuestions: len(res.Questions), Partial: res.Partial}, nil
}

type TurnRequest struct {
	SessionID            string       `json:"session_id"`
	Action               types.Action `json:"action"`
	Utterance            string       `json:"utterance"`
	CurrentQuestionID    string       `json:"current_question_id,omitempty"`
	QuestionIDToReAnswer string       `json:"question_id_to_re_answer,omitempty"`
}

func (r *TurnRequest) fingerprint() string {
	return strings.Join([]string{
		string(r.Action), strings.TrimSpace(r.Utterance), r.CurrentQuestionID, r.QuestionIDToReAnswer,
	}, "\x1f")
}

type TurnResult struct {
	AssistantMessage     string                         `json:"assistant_message"`
	Action               types.Outbound                 `json:"action"`
	QuestionID           string                         `json:"question_id,omitempty"`
	CurrentQuestionIndex int                            `json:"current_question_index"`
	NextQuestionText     string                         `json:"next_question_text,omitempty"`
	PredictedOption      string                         `json:"predicted_option,omitempty"`
	Responses            map[string]types.ResponseEntry `json:"responses"`
	State                types.State                    `json:"state"`
	TotalQuestions       int                            `json:"total_questions"`
	Metadata             map[string]string              `json:"metadata,omitempty"`
}

// Turn runs one dialogue step. Only an unknown session id is returned as an
// error; every other failure becomes an apology in the result and the session survives.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	ctx = callbacks.EnsureRunInfo(ctx, "InterviewEngine", "Engine")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"session_id": req.SessionID,
		"action":     string(req.Action),
		"utterance":  req.Utterance,
	})
	ctx = llm.WithSessionID(ctx, req.SessionID)

	defer func() {
		if r := recover(); r != nil {
			callbacks.OnError(ctx, fmt.Errorf("panic in Engine.Turn: %v", r))
			panic(r)
		}
	}()

	var result *TurnResult
	err := e.store.Mutate(ctx, req.SessionID, func(s *session.Session) error {
		before := s.Clone()
		result = e.step(ctx, s, &req)
		e.audit(ctx, before, s)
		return nil
	})
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}

	callbacks.OnEnd(ctx, map[string]any{
		"action": string(result.Action),
		"state":  string(result.State),
		"index":  result.CurrentQuestionIndex,
	})
	return result, nil
}

// Session returns a copy of the session state.
func (e *Engine) Session(ctx context.Context, id string) (*session.Session, error) {
	return e.store.Get(ctx, id)
}

type reply struct {
	message    string
	outbound   types.Outbound
	questionID string
	err        error
}

func (e *Engine) step(ctx context.Context, s *session.Session, req *TurnRequest) *TurnResult {
	fingerprint := req.fingerprint()
	if s.State == types.StateCompleted && s.LastTurn != nil && s.LastTurn.Fingerprint == fingerprint {
		slog.Debug("Replaying completed turn", "session_id", s.ID, "action", req.Action)
		return e.result(s, reply{
			message:    s.LastTurn.AssistantMessage,
			outbound:   s.LastTurn.Outbound,
			questionID: s.LastTurn.QuestionID,
		})
	}

	s.AppendHistory(types.RoleUser, strings.TrimSpace(req.Utterance))
	slog.Debug("Handling turn", "session_id", s.ID, "state", s.State, "action", req.Action, "index", s.CurrentIndex)

	var r reply
	switch {
	case !req.Action.Known():
		r = reply{message: unknownActionMessage, outbound: types.OutboundClarify}
	case !s.State.Allows(req.Action):
		r = e.invalidTransition(s, req.Action)
	default:
		r = e.dispatch(ctx, s, req)
	}
	if r.err != nil && r.message == "" {
		r = e.handleError(s, r.err)
	}

	s.AppendHistory(types.RoleAssistant, r.message)
	if r.outbound == types.OutboundComplete {
		s.LastTurn = &session.TurnRecord{
			Fingerprint:      fingerprint,
			AssistantMessage: r.message,
			Outbound:         r.outbound,
			QuestionID:       r.questionID,
		}
	}
	slog.Debug("Handled turn", "session_id", s.ID, "state", s.State, "outbound", r.outbound, "index", s.CurrentIndex)
	return e.result(s, r)
}

func (e *Engine) dispatch(ctx context.Context, s *session.Session, req *TurnRequest) reply {
	utterance := strings.TrimSpace(req.Utterance)
	switch req.Action {
	case types.ActionInitQuestionnaire:
		return e.initQuestionnaire(ctx, s)
	case types.ActionConfirmReadiness:
		return e.confirmReadiness(ctx, s, utterance)
	case types.ActionAnswer:
		if req.CurrentQuestionID != "" {
			if _, ok := s.QuestionIndex(req.CurrentQuestionID); !ok {
				return reply{err: fmt.Errorf("%w: question %s is not part of this session", types.ErrInvalidQuestionContext, req.CurrentQuestionID)}
			}
		}
		if _, ok := s.CurrentQuestion(); !ok {
			return reply{err: fmt.Errorf("%w: no open question", types.ErrInvalidQuestionContext)}
		}
		return e.answer(ctx, s, s.CurrentIndex, utterance)
	case types.ActionReAnswer:
		id := req.QuestionIDToReAnswer
		if id == "" {
			id = req.CurrentQuestionID
		}
		idx, ok := s.QuestionIndex(id)
		if !ok {
			return reply{err: fmt.Errorf("%w: question %q is not part of this session", types.ErrInvalidQuestionContext, id)}
		}
		return e.answer(ctx, s, idx, utterance)
	case types.ActionConfirmVague:
		return e.confirmVague(ctx, s, utterance)
	case types.ActionRepeatQuestion:
		return e.repeatQuestion(s)
	case types.ActionSubmit:
		return e.submit(s)
	}
	return reply{message: unknownActionMessage, outbound: types.OutboundClarify}
}

func (e *Engine) result(s *session.Session, r reply) *TurnResult {
	res := &TurnResult{
		AssistantMessage:     r.message,
		Action:               r.outbound,
		QuestionID:           r.questionID,
		CurrentQuestionIndex: s.CurrentIndex,
		PredictedOption:      s.LastPredictedOption,
		Responses:            make(map[string]types.ResponseEntry, len(s.Responses)),
		State:                s.State,
		TotalQuestions:       len(s.Questions),
	}
	for k, v := range s.Responses {
		res.Responses[k] = v
	}
	if s.State == types.StateAskingQuestion || s.State == types.StateAwaitingConfirmation {
		if q, ok := s.CurrentQuestion(); ok {
			res.NextQuestionText = q.Text
			if res.QuestionID == "" {
				res.QuestionID = q.ID
			}
		}
	}
	if r.err != nil {
		res.Metadata = map[string]string{
			"error":  types.ErrorCode(r.err),
			"detail": r.err.Error(),
		}
	}
	if s.Partial {
		if res.Metadata == nil {
			res.Metadata = map[string]string{}
		}
		res.Metadata["partial_groups"] = "true"
	}
	return res
}

func (e *Engine) handleError(s *session.Session, err error) reply {
	slog.Warn("Turn failed", "session_id", s.ID, "state", s.State, "error", err)
	message := errorMessage
	if types.ErrorCode(err) == "invalid_question_context" {
		message = invalidQuestionMessage
	}
	return reply{message: message, outbound: types.OutboundError, err: err}
}

func (e *Engine) historyWindowOf(s *session.Session) []types.Message {
	return prompt.LastN(s.History, e.historyWindow)
}
