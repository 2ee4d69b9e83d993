package types

// State is the dialogue position of a session.
type State string

const (
	StateNotStarted           State = "not_started"
	StateAwaitingReadiness    State = "awaiting_readiness"
	StateAskingQuestion       State = "asking_question"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCompleted            State = "completed"
	StateSubmitted            State = "submitted"
)

// Action is an inbound turn action sent by the client.
type Action string

const (
	ActionInitQuestionnaire Action = "init_questionnaire"
	ActionConfirmReadiness  Action = "confirm_readiness"
	ActionAnswer            Action = "answer"
	ActionReAnswer          Action = "re_answer_specific_question"
	ActionConfirmVague      Action = "confirm_vague_answer"
	ActionRepeatQuestion    Action = "repeat_question"
	ActionSubmit            Action = "submit_final_responses"
)

var inboundActions = map[Action]struct{}{
	ActionInitQuestionnaire: {},
	ActionConfirmReadiness:  {},
	ActionAnswer:            {},
	ActionReAnswer:          {},
	ActionConfirmVague:      {},
	ActionRepeatQuestion:    {},
	ActionSubmit:            {},
}

func (a Action) Known() bool {
	_, ok := inboundActions[a]
	return ok
}

// IsAnswerType reports whether the action records an answer and therefore
// goes through the approval gate.
func (a Action) IsAnswerType() bool {
	return a == ActionAnswer || a == ActionReAnswer || a == ActionConfirmVague
}

var allowedActions = map[State][]Action{
	StateNotStarted:        {ActionInitQuestionnaire, ActionSubmit},
	StateAwaitingReadiness: {ActionInitQuestionnaire, ActionConfirmReadiness, ActionSubmit},
	StateAskingQuestion: {
		ActionAnswer, ActionReAnswer, ActionConfirmVague, ActionRepeatQuestion, ActionSubmit,
	},
	StateAwaitingConfirmation: {
		ActionConfirmVague, ActionAnswer, ActionReAnswer, ActionRepeatQuestion, ActionSubmit,
	},
	StateCompleted: {ActionReAnswer, ActionSubmit},
}

// AllowedActions lists the inbound actions a session in state s accepts.
func AllowedActions(s State) []Action {
	return allowedActions[s]
}

func (s State) Allows(a Action) bool {
	for _, allowed := range allowedActions[s] {
		if allowed == a {
			return true
		}
	}
	return false
}

// ReadinessAction is the model vocabulary for the readiness confirmation prompt.
type ReadinessAction string

const (
	ReadinessReady    ReadinessAction = "ready"
	ReadinessNotReady ReadinessAction = "not_ready"
)

func ParseReadinessAction(s string) (ReadinessAction, bool) {
	switch a := ReadinessAction(s); a {
	case ReadinessReady, ReadinessNotReady:
		return a, true
	}
	return "", false
}

// AnswerAction is the model vocabulary for the answer classification prompt.
type AnswerAction string

const (
	AnswerAskQuestion       AnswerAction = "ask_question"
	AnswerComplete          AnswerAction = "complete"
	AnswerClarifyAndConfirm AnswerAction = "clarify_and_confirm"
	AnswerClarify           AnswerAction = "clarify"
	AnswerRepeat            AnswerAction = "repeat_question_gemini_detected"
)

func ParseAnswerAction(s string) (AnswerAction, bool) {
	switch a := AnswerAction(s); a {
	case AnswerAskQuestion, AnswerComplete, AnswerClarifyAndConfirm, AnswerClarify, AnswerRepeat:
		return a, true
	}
	return "", false
}

// ConfirmAction is the model vocabulary for the vague-answer confirmation prompt.
type ConfirmAction string

const (
	ConfirmYes       ConfirmAction = "confirm"
	ConfirmNo        ConfirmAction = "deny"
	ConfirmNewOption ConfirmAction = "new_option"
	ConfirmRepeat    ConfirmAction = "repeat"
)

func ParseConfirmAction(s string) (ConfirmAction, bool) {
	switch a := ConfirmAction(s); a {
	case ConfirmYes, ConfirmNo, ConfirmNewOption, ConfirmRepeat:
		return a, true
	}
	return "", false
}

// Outbound is the action tag returned to the client with every turn.
type Outbound string

const (
	OutboundConfirmReadiness  Outbound = "confirm_readiness"
	OutboundAskQuestion       Outbound = "ask_question"
	OutboundClarifyAndConfirm Outbound = "clarify_and_confirm"
	OutboundClarify           Outbound = "clarify"
	OutboundRepeatQuestion    Outbound = "repeat_question"
	OutboundComplete          Outbound = "complete"
	OutboundSubmitted         Outbound = "submitted"
	OutboundError             Outbound = "error"
)
