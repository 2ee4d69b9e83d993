package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tbxark/interviewagent/session"
	"github.com/tbxark/interviewagent/types"
)

var (
	readyPattern  = regexp.MustCompile(`(?i)\b(yes|ready|start|begin|ok|sure)\b`)
	yesPattern    = regexp.MustCompile(`(?i)\b(yes|yeah|yep|correct|right|exactly|sure|ok|okay)\b`)
	noPattern     = regexp.MustCompile(`(?i)\b(no|nope|not|wrong|incorrect)\b`)
	repeatPattern = regexp.MustCompile(`(?i)\b(repeat|again|pardon)\b`)
)

const (
	unknownActionMessage      = "Sorry, I didn't understand that request. Could you try again?"
	errorMessage              = "Sorry, something went wrong while processing your reply. Please try again."
	invalidQuestionMessage    = "Sorry, I couldn't find that question in this session. Please retry, or restart the questionnaire."
	notReadyMessage           = "No problem. Just let me know when you are ready to begin."
	readyMessage              = "Great, let's begin."
	emptyQuestionnaireMessage = "There are no questions to answer right now, so the questionnaire is already complete. You can submit whenever you like."
	completedMessage          = "That was the last question. You can now submit your responses, or change any answer before submitting."
	clarifyMessage            = "Sorry, I didn't quite catch that."
	confirmPredictionMessage  = "Just to confirm, did you mean %q?"
	denyMessage               = "Okay, let's try that one again."
	revokedMessage            = "That question is no longer part of this questionnaire, so let's skip it."
	acknowledgeMessage        = "Thank you."
)

func fallbackGreeting(total int) string {
	if total == 1 {
		return "Hello! I have one question for you. Are you ready to begin?"
	}
	return fmt.Sprintf("Hello! I have %d questions for you. Are you ready to begin?", total)
}

func restateMessage(options []string) string {
	if len(options) == 0 {
		return "Could you tell me your answer again, please?"
	}
	return fmt.Sprintf("Could you tell me your answer again, or choose one of: %s?", strings.Join(options, ", "))
}

func stateHint(s *session.Session) string {
	switch s.State {
	case types.StateNotStarted:
		return "We haven't started yet. Let me know when you'd like to begin the questionnaire."
	case types.StateAwaitingReadiness:
		return "Please tell me when you are ready to begin."
	case types.StateAskingQuestion:
		if q, ok := s.CurrentQuestion(); ok {
			return joinMessage("Let's stay with the current question.", types.FormatQuestion(*q))
		}
	case types.StateAwaitingConfirmation:
		return fmt.Sprintf("Please confirm first: did you mean %q?", s.LastPredictedOption)
	case types.StateCompleted:
		return "All questions are answered. You can submit your responses, or change a specific answer."
	}
	return unknownActionMessage
}

func composeSummary(responses []types.ResponseEntry) string {
	if len(responses) == 0 {
		return "Thank you! Your questionnaire was submitted without any answers."
	}
	var sb strings.Builder
	sb.WriteString("Thank you! Here is a summary of your answers:")
	for i, r := range responses {
		sb.WriteString(fmt.Sprintf("\n%d. %s\n   Answer: %s", i+1, r.Question, r.Answer))
	}
	return sb.String()
}

type answerClass struct {
	action    types.AnswerAction
	answer    string
	predicted string
	message   string
	fallback  bool
}

// classifyAnswer turns a model decision into a usable classification for q,
// falling back to local matching when the decision is missing or unusable.
func classifyAnswer(q types.QuestionSnapshot, d *types.Decision, utterance string) answerClass {
	if d != nil {
		if action, ok := types.ParseAnswerAction(d.Action); ok {
			c := answerClass{action: action, message: strings.TrimSpace(d.AssistantMessage)}
			switch action {
			case types.AnswerAskQuestion, types.AnswerComplete:
				if answer, ok := acceptedAnswer(q, d.ConfirmedAnswer, utterance); ok {
					c.answer = answer
					if c.message == "" {
						c.message = acknowledgeMessage
					}
					return c
				}
				c.action, c.message = types.AnswerClarify, ""
				return c
			case types.AnswerClarifyAndConfirm:
				if !q.IsChoice() {
					c.action, c.message = types.AnswerClarify, ""
					return c
				}
				predicted, ok := q.CanonicalOption(d.PredictedOption)
				if !ok {
					predicted, ok = q.MatchOption(d.PredictedOption)
				}
				if !ok {
					c.action, c.message = types.AnswerClarify, ""
					return c
				}
				c.predicted = predicted
				return c
			default:
				return c
			}
		}
	}

	c := answerClass{fallback: true}
	if repeatPattern.MatchString(utterance) {
		c.action = types.AnswerRepeat
		return c
	}
	if answer, ok := acceptedAnswer(q, "", utterance); ok {
		c.action = types.AnswerAskQuestion
		c.answer = answer
		c.message = acknowledgeMessage
		return c
	}
	c.action = types.AnswerClarify
	return c
}

// acceptedAnswer resolves the answer to record. Choice answers must name an
// option; free text falls back to the utterance itself.
func acceptedAnswer(q types.QuestionSnapshot, confirmed, utterance string) (string, bool) {
	confirmed = strings.TrimSpace(confirmed)
	if q.IsChoice() {
		if opt, ok := q.CanonicalOption(confirmed); ok {
			return opt, true
		}
		return q.MatchOption(utterance)
	}
	if confirmed != "" {
		return confirmed, true
	}
	if utterance != "" {
		return utterance, true
	}
	return "", false
}

type confirmClass struct {
	action   types.ConfirmAction
	answer   string
	message  string
	fallback bool
}

func classifyConfirmation(q types.QuestionSnapshot, predicted string, d *types.Decision, utterance string) confirmClass {
	if d != nil {
		if action, ok := types.ParseConfirmAction(d.Action); ok {
			c := confirmClass{action: action, message: strings.TrimSpace(d.AssistantMessage)}
			switch action {
			case types.ConfirmYes:
				c.answer = predicted
			case types.ConfirmNewOption:
				opt, ok := q.CanonicalOption(d.ConfirmedAnswer)
				if !ok {
					opt, ok = q.MatchOption(utterance)
				}
				if !ok {
					c.action, c.message = types.ConfirmNo, ""
					break
				}
				c.answer = opt
			}
			if (c.action == types.ConfirmYes || c.action == types.ConfirmNewOption) && c.message == "" {
				c.message = acknowledgeMessage
			}
			return c
		}
	}

	c := confirmClass{fallback: true}
	if opt, ok := q.MatchOption(utterance); ok && opt != predicted {
		c.action = types.ConfirmNewOption
		c.answer = opt
		c.message = acknowledgeMessage
		return c
	}
	switch {
	case repeatPattern.MatchString(utterance):
		c.action = types.ConfirmRepeat
	case noPattern.MatchString(utterance):
		c.action = types.ConfirmNo
	case yesPattern.MatchString(utterance):
		c.action = types.ConfirmYes
		c.answer = predicted
		c.message = acknowledgeMessage
	default:
		c.action = types.ConfirmNo
	}
	return c
}
