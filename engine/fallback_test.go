package engine

import (
	"testing"

	"github.com/tbxark/interviewagent/types"
)

func TestClassifyAnswerFallback(t *testing.T) {
	q := choice("q1", "How often?", "Never", "Rarely", "Often")
	tests := []struct {
		name      string
		utterance string
		action    types.AnswerAction
		answer    string
	}{
		{name: "option by name", utterance: "rarely, I think", action: types.AnswerAskQuestion, answer: "Rarely"},
		{name: "option by number", utterance: "3", action: types.AnswerAskQuestion, answer: "Often"},
		{name: "repeat request", utterance: "can you repeat that", action: types.AnswerRepeat},
		{name: "no option", utterance: "bananas", action: types.AnswerClarify},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classifyAnswer(q, nil, tt.utterance)
			if !c.fallback {
				t.Fatal("expected fallback classification")
			}
			if c.action != tt.action || c.answer != tt.answer {
				t.Fatalf("got %s %q, want %s %q", c.action, c.answer, tt.action, tt.answer)
			}
		})
	}
}

func TestClassifyAnswerDecision(t *testing.T) {
	q := choice("q1", "How often?", "Never", "Often")
	c := classifyAnswer(q, &types.Decision{Action: "clarify_and_confirm", PredictedOption: "2"}, "the second one maybe")
	if c.action != types.AnswerClarifyAndConfirm || c.predicted != "Often" {
		t.Fatalf("got %+v", c)
	}
	c = classifyAnswer(q, &types.Decision{Action: "clarify_and_confirm", PredictedOption: "Always"}, "always")
	if c.action != types.AnswerClarify || c.message != "" {
		t.Fatalf("unknown prediction: %+v", c)
	}
	c = classifyAnswer(q, &types.Decision{Action: "dance"}, "often")
	if !c.fallback || c.answer != "Often" {
		t.Fatalf("unknown action: %+v", c)
	}
}

func TestClassifyConfirmationFallback(t *testing.T) {
	q := choice("q1", "How often?", "Never", "Rarely", "Often")
	tests := []struct {
		utterance string
		action    types.ConfirmAction
		answer    string
	}{
		{utterance: "yes", action: types.ConfirmYes, answer: "Often"},
		{utterance: "yeah often", action: types.ConfirmYes, answer: "Often"},
		{utterance: "no", action: types.ConfirmNo},
		{utterance: "actually rarely", action: types.ConfirmNewOption, answer: "Rarely"},
		{utterance: "say it again", action: types.ConfirmRepeat},
		{utterance: "hmm", action: types.ConfirmNo},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			c := classifyConfirmation(q, "Often", nil, tt.utterance)
			if c.action != tt.action || c.answer != tt.answer {
				t.Fatalf("got %s %q, want %s %q", c.action, c.answer, tt.action, tt.answer)
			}
		})
	}
}

func TestComposeSummary(t *testing.T) {
	got := composeSummary([]types.ResponseEntry{{Question: "Color?", Answer: "Blue"}, {Question: "Size?", Answer: "Large"}})
	want := "Thank you! Here is a summary of your answers:\n1. Color?\n   Answer: Blue\n2. Size?\n   Answer: Large"
	if got != want {
		t.Fatalf("summary = %q", got)
	}
	if composeSummary(nil) == "" {
		t.Fatal("empty summary")
	}
}
