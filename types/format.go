package types

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// PromptRequest carries everything a classification prompt shows the model.
type PromptRequest struct {
	Question        *QuestionSnapshot
	Position        int
	Total           int
	IsLast          bool
	Utterance       string
	PredictedOption string
	History         []Message
	DecisionSchema  string
	// Language is the session locale; empty uses the builder default.
	Language string
}

func formatOptionsSection(options []string) string {
	if len(options) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Allowed options:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("#", "Option")
	for i, opt := range options {
		_ = table.Append(fmt.Sprintf("%d", i+1), opt)
	}
	_ = table.Render()
	return buf.String()
}

func formatHistorySection(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Recent conversation:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Role", "Text")
	for _, m := range history {
		_ = table.Append(string(m.Role), strings.ReplaceAll(m.Content, "\n", " "))
	}
	_ = table.Render()
	return buf.String()
}

func FormatPromptRequest(req *PromptRequest) string {
	var sections []string
	if req.Question != nil {
		sections = append(sections,
			fmt.Sprintf("# Current question (%d of %d, id %s, type %s):\n%s",
				req.Position+1, req.Total, req.Question.ID, req.Question.Type, req.Question.Text),
			fmt.Sprintf("# Is last question:\n%t", req.IsLast),
		)
		if s := formatOptionsSection(req.Question.Options); s != "" {
			sections = append(sections, s)
		}
	}
	if req.PredictedOption != "" {
		sections = append(sections, fmt.Sprintf("# Option awaiting confirmation:\n%s", req.PredictedOption))
	}
	if s := formatHistorySection(req.History); s != "" {
		sections = append(sections, s)
	}
	if req.DecisionSchema != "" {
		sections = append(sections, fmt.Sprintf("# Output JSON schema:\n```json\n%s\n```", req.DecisionSchema))
	}
	sections = append(sections, fmt.Sprintf("# User utterance:\n%s", req.Utterance))
	return strings.Join(sections, "\n\n")
}

// FormatQuestion renders a question for the user, listing options for choice questions.
func FormatQuestion(q QuestionSnapshot) string {
	if !q.IsChoice() || len(q.Options) == 0 {
		return q.Text
	}
	var sb strings.Builder
	sb.WriteString(q.Text)
	sb.WriteString("\nOptions:")
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
	}
	return sb.String()
}
