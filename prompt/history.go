package prompt

import "github.com/tbxark/interviewagent/types"

// LastN keeps the last n history messages. When n <= 0 it keeps nothing.
func LastN(history []types.Message, n int) []types.Message {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
