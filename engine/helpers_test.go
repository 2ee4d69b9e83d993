package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/tbxark/interviewagent/question"
	"github.com/tbxark/interviewagent/session"
	"github.com/tbxark/interviewagent/types"
)

// scriptedGenerator replies with queued outputs in order.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
}

type scriptedReply struct {
	text string
	err  error
}

func (g *scriptedGenerator) push(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, scriptedReply{text: text})
}

func (g *scriptedGenerator) pushErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, scriptedReply{err: err})
}

func (g *scriptedGenerator) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.replies)
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return "", errors.New("unexpected generation call")
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

type staticResolver struct {
	questions []types.QuestionSnapshot
	err       error
}

func (r staticResolver) Resolve(ctx context.Context, language string) (*question.Resolution, error) {
	if r.err != nil {
		return nil, r.err
	}
	if len(r.questions) == 0 {
		return nil, types.ErrNoEligibleQuestions
	}
	qs := make([]types.QuestionSnapshot, len(r.questions))
	copy(qs, r.questions)
	return &question.Resolution{Questions: qs}, nil
}

// fakeGate approves everything except revoked ids.
type fakeGate struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
	checked []string
}

func (g *fakeGate) revoke(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.revoked == nil {
		g.revoked = map[string]bool{}
	}
	g.revoked[id] = true
}

func (g *fakeGate) Check(ctx context.Context, questionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checked = append(g.checked, questionID)
	if g.err != nil {
		return false, g.err
	}
	return !g.revoked[questionID], nil
}

type harness struct {
	t      *testing.T
	engine *Engine
	store  *session.MemoryStore
	gen    *scriptedGenerator
	gate   *fakeGate
	id     string
}

func newHarness(t *testing.T, questions ...types.QuestionSnapshot) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		store: session.NewMemoryStore(),
		gen:   &scriptedGenerator{},
		gate:  &fakeGate{},
	}
	eng, err := New(Config{
		Store:     h.store,
		Resolver:  staticResolver{questions: questions},
		Gate:      h.gate,
		Generator: h.gen,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = eng
	start, err := eng.StartSession(context.Background(), "en")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	h.id = start.SessionID
	return h
}

func (h *harness) turn(action types.Action, utterance string) *TurnResult {
	h.t.Helper()
	return h.turnReq(TurnRequest{Action: action, Utterance: utterance})
}

func (h *harness) turnReq(req TurnRequest) *TurnResult {
	h.t.Helper()
	req.SessionID = h.id
	res, err := h.engine.Turn(context.Background(), req)
	if err != nil {
		h.t.Fatalf("Turn(%s, %q): %v", req.Action, req.Utterance, err)
	}
	return res
}

func (h *harness) session() *session.Session {
	h.t.Helper()
	s, err := h.store.Get(context.Background(), h.id)
	if err != nil {
		h.t.Fatalf("Get: %v", err)
	}
	return s
}

// start runs the greeting and readiness turns and leaves the session on question 1.
func (h *harness) start() *TurnResult {
	h.t.Helper()
	h.gen.push(decision("confirm_readiness", "Hi! Ready?", nil))
	h.turn(types.ActionInitQuestionnaire, "")
	h.gen.push(decision("ready", "Great, here we go.", nil))
	return h.turn(types.ActionConfirmReadiness, "yes")
}

func decision(action, message string, extra map[string]any) string {
	m := map[string]any{"action": action, "assistant_message": message}
	for k, v := range extra {
		m[k] = v
	}
	out, err := sonic.MarshalString(m)
	if err != nil {
		panic(err)
	}
	return out
}

func freetext(id, text string) types.QuestionSnapshot {
	return types.QuestionSnapshot{ID: id, Text: text, Type: types.QuestionFreetext, Language: "en", GroupID: id}
}

func choice(id, text string, options ...string) types.QuestionSnapshot {
	return types.QuestionSnapshot{ID: id, Text: text, Type: types.QuestionChoice, Options: options, Language: "en", GroupID: id}
}

func mustContain(t *testing.T, s string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			t.Errorf("%q does not contain %q", s, sub)
		}
	}
}

func describe(res *TurnResult) string {
	return fmt.Sprintf("action=%s state=%s index=%d question=%s message=%q",
		res.Action, res.State, res.CurrentQuestionIndex, res.QuestionID, res.AssistantMessage)
}
