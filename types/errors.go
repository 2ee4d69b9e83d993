package types

import "errors"

var (
	ErrSessionCreationFailed  = errors.New("session creation failed")
	ErrNoEligibleQuestions    = errors.New("no eligible questions")
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvalidQuestionContext = errors.New("invalid question context")
	ErrGenerationUnavailable  = errors.New("generation unavailable")
	ErrRepositoryUnavailable  = errors.New("question repository unavailable")
	ErrInvalidTransition      = errors.New("action not allowed in current state")
)

// ErrorCode maps an error to the stable code reported in turn metadata and API responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionCreationFailed):
		return "session_creation_failed"
	case errors.Is(err, ErrNoEligibleQuestions):
		return "no_eligible_questions"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrInvalidQuestionContext):
		return "invalid_question_context"
	case errors.Is(err, ErrGenerationUnavailable):
		return "generation_unavailable"
	case errors.Is(err, ErrRepositoryUnavailable):
		return "repository_unavailable"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal"
	}
}
