package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

type QuestionType string

const (
	QuestionChoice   QuestionType = "choice"
	QuestionFreetext QuestionType = "freetext"
)

// QuestionSnapshot is the read-only copy of a question taken when a session starts.
type QuestionSnapshot struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
	Language string       `json:"language"`
	GroupID  string       `json:"group_id"`
}

func (q QuestionSnapshot) IsChoice() bool {
	return q.Type == QuestionChoice
}

// CanonicalOption returns the option text matching s, ignoring case and surrounding space.
func (q QuestionSnapshot) CanonicalOption(s string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", false
	}
	for _, opt := range q.Options {
		if strings.ToLower(strings.TrimSpace(opt)) == normalized {
			return opt, true
		}
	}
	return "", false
}

// MatchOption picks the single option an utterance refers to, either by its
// 1-based number or by mentioning the option text. Ambiguous utterances match nothing.
func (q QuestionSnapshot) MatchOption(utterance string) (string, bool) {
	if opt, ok := q.CanonicalOption(utterance); ok {
		return opt, true
	}
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	if n, err := strconv.Atoi(normalized); err == nil {
		if n >= 1 && n <= len(q.Options) {
			return q.Options[n-1], true
		}
		return "", false
	}
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !(r == '\'' || r == '-' || isLetterOrDigit(r))
	})
	padded := " " + strings.Join(words, " ") + " "
	var found []string
	for _, opt := range q.Options {
		optWords := strings.FieldsFunc(strings.ToLower(opt), func(r rune) bool {
			return !(r == '\'' || r == '-' || isLetterOrDigit(r))
		})
		if len(optWords) == 0 {
			continue
		}
		if strings.Contains(padded, " "+strings.Join(optWords, " ")+" ") {
			found = append(found, opt)
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

func isLetterOrDigit(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseEntry is one recorded answer, keyed by question id in a session.
type ResponseEntry struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Raw        string    `json:"raw"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Decision is the structured classification the language model is asked to return.
type Decision struct {
	AssistantMessage     string `json:"assistant_message" jsonschema:"required,description=Short natural reply shown to the user"`
	Action               string `json:"action" jsonschema:"required,description=Action tag chosen from the allowed list in the instructions"`
	QuestionID           string `json:"question_id,omitempty" jsonschema:"description=Id of the question being handled"`
	PredictedOption      string `json:"predicted_option,omitempty" jsonschema:"description=Option the user most likely meant when the answer is vague"`
	ConfirmedAnswer      string `json:"confirmed_answer,omitempty" jsonschema:"description=Final answer text to record for the question"`
	CurrentQuestionIndex *int   `json:"current_question_index,omitempty" jsonschema:"description=0-based index of the question being handled"`
}

// UnmarshalJSON accepts any JSON object. Scalar fields of another type are
// coerced, anything else is left empty and unknown keys are ignored.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := sonic.Unmarshal(data, &fields); err != nil {
		return err
	}
	*d = Decision{
		AssistantMessage: looseString(fields["assistant_message"]),
		Action:           looseString(fields["action"]),
		QuestionID:       looseString(fields["question_id"]),
		PredictedOption:  looseString(fields["predicted_option"]),
		ConfirmedAnswer:  looseString(fields["confirmed_answer"]),
	}
	if idx, ok := looseInt(fields["current_question_index"]); ok {
		d.CurrentQuestionIndex = &idx
	}
	return nil
}

func looseString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func looseInt(v any) (int, bool) {
	switch v := v.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}
