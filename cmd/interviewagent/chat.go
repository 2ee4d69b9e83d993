package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tbxark/interviewagent/engine"
	"github.com/tbxark/interviewagent/types"
)

var chatLanguage string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Take the questionnaire in the terminal",
	Long: `Start a session and answer the questionnaire interactively.

Commands: /repeat, /edit <question-id> <answer>, /submit, /quit`,
	RunE: runChatCmd,
}

func init() {
	chatCmd.Flags().StringVarP(&chatLanguage, "lang", "l", "", "questionnaire language (defaults to questions.default_language)")
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	lang := chatLanguage
	if lang == "" {
		lang = a.conf.Questions.DefaultLanguage
	}
	return runChat(ctx, a.engine, lang, cmd.InOrStdin(), cmd.OutOrStdout())
}

// turnRunner is the part of the engine the terminal chat drives.
type turnRunner interface {
	StartSession(ctx context.Context, language string) (*engine.StartResult, error)
	Turn(ctx context.Context, req engine.TurnRequest) (*engine.TurnResult, error)
}

func runChat(ctx context.Context, eng turnRunner, lang string, in io.Reader, out io.Writer) error {
	start, err := eng.StartSession(ctx, lang)
	if err != nil {
		return err
	}
	res, err := eng.Turn(ctx, engine.TurnRequest{SessionID: start.SessionID, Action: types.ActionInitQuestionnaire})
	if err != nil {
		return err
	}
	printReply(out, res)

	reader := bufio.NewReader(in)
	state := res.State
	for {
		fmt.Fprint(out, "You: ")
		line, rErr := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if rErr != nil && line == "" {
			fmt.Fprintln(out, "\nInput closed. Bye.")
			return nil
		}
		if line == "/quit" {
			return nil
		}
		req, ok := chatRequest(state, line)
		if !ok {
			fmt.Fprintln(out, "Usage: /edit <question-id> <answer>")
			continue
		}
		req.SessionID = start.SessionID
		res, err = eng.Turn(ctx, req)
		if err != nil {
			return err
		}
		printReply(out, res)
		if res.State == types.StateSubmitted {
			return nil
		}
		state = res.State
	}
}

// chatRequest maps a typed line to a turn for the current dialogue state.
func chatRequest(state types.State, line string) (engine.TurnRequest, bool) {
	switch {
	case line == "/repeat":
		return engine.TurnRequest{Action: types.ActionRepeatQuestion}, true
	case line == "/submit":
		return engine.TurnRequest{Action: types.ActionSubmit}, true
	case strings.HasPrefix(line, "/edit"):
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return engine.TurnRequest{}, false
		}
		return engine.TurnRequest{
			Action:               types.ActionReAnswer,
			QuestionIDToReAnswer: fields[1],
			Utterance:            strings.Join(fields[2:], " "),
		}, true
	}
	switch state {
	case types.StateNotStarted:
		return engine.TurnRequest{Action: types.ActionInitQuestionnaire, Utterance: line}, true
	case types.StateAwaitingReadiness:
		return engine.TurnRequest{Action: types.ActionConfirmReadiness, Utterance: line}, true
	case types.StateAwaitingConfirmation:
		return engine.TurnRequest{Action: types.ActionConfirmVague, Utterance: line}, true
	default:
		return engine.TurnRequest{Action: types.ActionAnswer, Utterance: line}, true
	}
}

func printReply(out io.Writer, res *engine.TurnResult) {
	fmt.Fprintf(out, "\nAssistant: %s\n", res.AssistantMessage)
	if res.Action == types.OutboundComplete {
		fmt.Fprintln(out, "(type /submit to finish, or /edit <question-id> <answer> to change an answer)")
	}
	fmt.Fprintln(out, "======")
}
