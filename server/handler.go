// Package server exposes the dialogue engine over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/sessions"
	"github.com/tbxark/interviewagent/engine"
	"github.com/tbxark/interviewagent/session"
	"github.com/tbxark/interviewagent/types"
)

const (
	cookieName   = "interview-session"
	cookieKey    = "session_id"
	maxBodyBytes = 64 << 10
)

// Dialogue is the part of the engine the handler drives.
type Dialogue interface {
	StartSession(ctx context.Context, language string) (*engine.StartResult, error)
	Turn(ctx context.Context, req engine.TurnRequest) (*engine.TurnResult, error)
	Session(ctx context.Context, id string) (*session.Session, error)
}

type handler struct {
	dialogue        Dialogue
	cookies         *sessions.CookieStore
	defaultLanguage string
}

type startRequest struct {
	Language string `json:"language"`
}

type turnRequest struct {
	Action               types.Action `json:"action"`
	Utterance            string       `json:"utterance"`
	CurrentQuestionID    string       `json:"current_question_id,omitempty"`
	QuestionIDToReAnswer string       `json:"question_id_to_re_answer,omitempty"`
}

// SessionView is the read-only projection returned by GET /v1/sessions/{id}.
type SessionView struct {
	SessionID            string                         `json:"session_id"`
	Language             string                         `json:"language"`
	State                types.State                    `json:"state"`
	CurrentQuestionIndex int                            `json:"current_question_index"`
	TotalQuestions       int                            `json:"total_questions"`
	Responses            []types.ResponseEntry          `json:"responses"`
	ResponsesByQuestion  map[string]types.ResponseEntry `json:"responses_by_question"`
	Partial              bool                           `json:"partial"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewHandler builds the HTTP handler for the dialogue API.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Dialogue == nil {
		return nil, errors.New("server: dialogue is required")
	}
	if len(cfg.CookieSecret) == 0 {
		return nil, errors.New("server: cookie secret is required")
	}
	cookies := sessions.NewCookieStore(cfg.CookieSecret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	h := &handler{dialogue: cfg.Dialogue, cookies: cookies, defaultLanguage: cfg.DefaultLanguage}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /v1/sessions", h.startSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.getSession)
	mux.HandleFunc("POST /v1/sessions/{id}/turns", h.sessionTurn)
	mux.HandleFunc("POST /v1/turns", h.cookieTurn)
	return mux, nil
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) startSession(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	language := strings.TrimSpace(body.Language)
	if language == "" {
		language = h.defaultLanguage
	}
	res, err := h.dialogue.StartSession(r.Context(), language)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	cookie, _ := h.cookies.Get(r, cookieName)
	cookie.Values[cookieKey] = res.SessionID
	if err := cookie.Save(r, w); err != nil {
		slog.Warn("Failed to save session cookie", "session_id", res.SessionID, "error", err)
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.dialogue.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionView{
		SessionID:            s.ID,
		Language:             s.Language,
		State:                s.State,
		CurrentQuestionIndex: s.CurrentIndex,
		TotalQuestions:       len(s.Questions),
		Responses:            s.OrderedResponses(),
		ResponsesByQuestion:  s.Responses,
		Partial:              s.Partial,
	})
}

func (h *handler) sessionTurn(w http.ResponseWriter, r *http.Request) {
	h.turn(w, r, r.PathValue("id"))
}

func (h *handler) cookieTurn(w http.ResponseWriter, r *http.Request) {
	cookie, err := h.cookies.Get(r, cookieName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "session cookie is invalid")
		return
	}
	id, _ := cookie.Values[cookieKey].(string)
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "no session cookie, start a session first")
		return
	}
	h.turn(w, r, id)
}

func (h *handler) turn(w http.ResponseWriter, r *http.Request, id string) {
	var body turnRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if body.Action == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "action is required")
		return
	}
	res, err := h.dialogue.Turn(r.Context(), engine.TurnRequest{
		SessionID:            id,
		Action:               body.Action,
		Utterance:            body.Utterance,
		CurrentQuestionID:    body.CurrentQuestionID,
		QuestionIDToReAnswer: body.QuestionIDToReAnswer,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return errors.New("request body is not valid JSON")
	}
	return nil
}

func writeEngineError(w http.ResponseWriter, err error) {
	code := types.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case "session_not_found":
		status = http.StatusNotFound
	case "no_eligible_questions":
		status = http.StatusUnprocessableEntity
	case "session_creation_failed", "repository_unavailable", "generation_unavailable":
		status = http.StatusServiceUnavailable
	case "invalid_question_context", "invalid_transition":
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
