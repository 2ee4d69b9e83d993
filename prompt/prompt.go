// Package prompt builds the four classification prompts used by the dialogue engine.
package prompt

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"
	"github.com/tbxark/interviewagent/types"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type Task string

const (
	TaskReadinessIntro        Task = "readiness_intro"
	TaskReadinessConfirmation Task = "readiness_confirmation"
	TaskAnswerClassification  Task = "answer_classification"
	TaskVagueConfirmation     Task = "vague_confirmation"
)

// Prompt is one ready-to-send generation request.
type Prompt struct {
	Task   Task
	System string
	User   string
}

// DefaultSystemPromptTemplate may contain a single "%s" placeholder for the reply language.
const DefaultSystemPromptTemplate = `You are a warm and concise interviewer guiding a person through a short questionnaire, one question at a time.
Keep replies brief and friendly, suitable for being read aloud. Never invent questions or options.
Reply in %s.
Return ONLY a JSON object that follows the output schema. Do not wrap it in prose.
`

const readinessIntroInstructions = `# Task:
Greet the user, tell them how many questions there are, and ask whether they are ready to begin.
Keys: "assistant_message" (the greeting), "action" (always "confirm_readiness").`

const readinessConfirmationInstructions = `# Task:
Decide whether the user is ready to start the questionnaire.
Keys: "assistant_message" (short acknowledgement, or a gentle re-ask when not ready), "action" (one of "ready", "not_ready").`

const choiceAnswerInstructions = `# Task:
Classify the user's answer to the current multiple-choice question.
Keys: "assistant_message", "action", "question_id", "predicted_option", "confirmed_answer".
Actions:
- "ask_question": the answer clearly matches one option and this is NOT the last question. Set "confirmed_answer" to the exact option text.
- "complete": the answer clearly matches one option and this IS the last question. Set "confirmed_answer" to the exact option text.
- "clarify_and_confirm": the answer is vague but most likely means one option. Set "predicted_option" to that exact option text and ask the user to confirm it.
- "clarify": the answer does not fit any option or is off-topic. Explain briefly what is expected.
- "repeat_question_gemini_detected": the user asks to hear the question again.`

const freetextAnswerInstructions = `# Task:
Classify the user's answer to the current open question.
Keys: "assistant_message", "action", "question_id", "confirmed_answer".
Actions:
- "ask_question": the user answered and this is NOT the last question. Set "confirmed_answer" to a faithful, concise version of the answer.
- "complete": the user answered and this IS the last question. Set "confirmed_answer" as above.
- "clarify": the utterance does not answer the question. Explain briefly what is expected.
- "repeat_question_gemini_detected": the user asks to hear the question again.`

const vagueConfirmationInstructions = `# Task:
The user was asked to confirm the option awaiting confirmation. Classify their reply.
Keys: "assistant_message", "action", "confirmed_answer".
Actions:
- "confirm": the user agrees. Set "confirmed_answer" to the option awaiting confirmation.
- "new_option": the user names a different option instead. Set "confirmed_answer" to that exact option text.
- "deny": the user disagrees without naming another option.
- "repeat": the user asks to hear the question again.`

type options struct {
	lang                 string
	systemPrompt         string
	systemPromptTemplate string
}

type Option func(*options)

// WithLang sets the language used by the default system prompt template.
func WithLang(lang string) Option {
	return func(o *options) {
		o.lang = lang
	}
}

// WithSystemPrompt overrides the system prompt entirely.
func WithSystemPrompt(systemPrompt string) Option {
	return func(o *options) {
		o.systemPrompt = systemPrompt
	}
}

// WithSystemPromptTemplate overrides the system prompt template.
// If the template contains "%s", it will be formatted with the language.
func WithSystemPromptTemplate(tpl string) Option {
	return func(o *options) {
		o.systemPromptTemplate = tpl
	}
}

type Builder struct {
	Lang         string
	systemPrompt string
	template     string
	schema       string
}

func NewBuilder(opts ...Option) (*Builder, error) {
	o := options{
		lang:                 "English",
		systemPromptTemplate: DefaultSystemPromptTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.lang == "" {
		o.lang = "English"
	}
	schema, err := DecisionSchema()
	if err != nil {
		return nil, err
	}
	tpl := o.systemPromptTemplate
	if tpl == "" {
		tpl = DefaultSystemPromptTemplate
	}
	return &Builder{
		Lang:         o.lang,
		systemPrompt: o.systemPrompt,
		template:     tpl,
		schema:       schema,
	}, nil
}

// System renders the system prompt for a session language. An empty or
// unknown locale falls back to the builder language.
func (b *Builder) System(locale string) string {
	if b.systemPrompt != "" {
		return b.systemPrompt
	}
	if !strings.Contains(b.template, "%s") {
		return b.template
	}
	return fmt.Sprintf(b.template, b.languageName(locale))
}

// languageName turns a locale such as "es" or "pt-BR" into an English
// language name the model can follow.
func (b *Builder) languageName(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return b.Lang
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return b.Lang
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return b.Lang
}

// DecisionSchema returns the JSON schema of the decision object.
func DecisionSchema() (string, error) {
	schema := jsonschema.Reflect(&types.Decision{})
	schema.Title = "Decision"
	schema.Description = "Classification of the user's latest utterance."
	out, err := sonic.MarshalString(schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal decision schema: %w", err)
	}
	return out, nil
}

func (b *Builder) ReadinessIntro(req *types.PromptRequest) Prompt {
	body := fmt.Sprintf("%s\n\n# Number of questions:\n%d", readinessIntroInstructions, req.Total)
	return b.build(TaskReadinessIntro, body, req, false)
}

func (b *Builder) ReadinessConfirmation(req *types.PromptRequest) Prompt {
	return b.build(TaskReadinessConfirmation, readinessConfirmationInstructions, req, false)
}

func (b *Builder) AnswerClassification(req *types.PromptRequest) Prompt {
	instructions := freetextAnswerInstructions
	if req.Question != nil && req.Question.IsChoice() {
		instructions = choiceAnswerInstructions
	}
	return b.build(TaskAnswerClassification, instructions, req, true)
}

func (b *Builder) VagueConfirmation(req *types.PromptRequest) Prompt {
	return b.build(TaskVagueConfirmation, vagueConfirmationInstructions, req, true)
}

func (b *Builder) build(task Task, instructions string, req *types.PromptRequest, withQuestion bool) Prompt {
	view := *req
	view.DecisionSchema = b.schema
	if !withQuestion {
		view.Question = nil
	}
	return Prompt{
		Task:   task,
		System: b.System(req.Language),
		User:   instructions + "\n\n" + types.FormatPromptRequest(&view),
	}
}
