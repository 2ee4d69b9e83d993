package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tbxark/interviewagent/config"
	"github.com/tbxark/interviewagent/engine"
	"github.com/tbxark/interviewagent/llm"
	"github.com/tbxark/interviewagent/prompt"
	"github.com/tbxark/interviewagent/question"
	"github.com/tbxark/interviewagent/session"
)

// app holds everything a command needs once the config is loaded.
type app struct {
	conf   *config.Config
	repo   *question.SQLiteRepository
	store  *session.MemoryStore
	engine *engine.Engine
}

func loadConfig() (*config.Config, error) {
	conf, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		conf.Log.Level = logLevel
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return conf, nil
}

func setupLogger(conf config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(conf.Level)}
	var handler slog.Handler
	if conf.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newGenerator builds the configured backend, wrapped with the transcript
// recorder when a transcript directory is set.
func newGenerator(ctx context.Context, conf config.LLMConfig) (llm.Generator, error) {
	var gen llm.Generator
	switch conf.Provider {
	case "openai":
		gen = llm.NewOpenAIGenerator(conf.APIKey, conf.BaseURL, conf.Model, conf.JSONMode)
	default:
		cm, err := llm.NewOpenAIChatModelGenerator(ctx, conf.APIKey, conf.BaseURL, conf.Model)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		gen = cm
	}
	if conf.TranscriptDir != "" {
		t, err := llm.NewTranscriptGenerator(gen, conf.TranscriptDir)
		if err != nil {
			return nil, fmt.Errorf("create transcript recorder: %w", err)
		}
		gen = t
	}
	return gen, nil
}

func newApp(ctx context.Context, conf *config.Config) (*app, error) {
	repo, err := question.OpenSQLite(conf.Questions.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open question repository: %w", err)
	}
	gen, err := newGenerator(ctx, conf.LLM)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	prompts, err := prompt.NewBuilder(prompt.WithLang(conf.LLM.Language))
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	var onAudit func(string, []byte)
	if conf.LLM.TranscriptDir != "" {
		audit, err := llm.NewAuditLog(conf.LLM.TranscriptDir)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("create audit log: %w", err)
		}
		onAudit = audit.Record
	}
	store := session.NewMemoryStore(session.WithTTL(conf.Session.TTL))
	eng, err := engine.New(engine.Config{
		Store: store,
		Resolver: question.NewResolver(repo,
			question.WithPartialGroups(conf.Questions.AllowPartialGroups),
			question.WithResolverTimeout(conf.Questions.Timeout)),
		Gate:              question.NewApprovalGate(repo, conf.Questions.Timeout),
		Generator:         gen,
		Prompts:           prompts,
		GenerationTimeout: conf.LLM.Timeout,
		HistoryWindow:     conf.Session.HistoryWindow,
		OnAudit:           onAudit,
	})
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return &app{conf: conf, repo: repo, store: store, engine: eng}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

func bootstrap(ctx context.Context) (*app, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogger(conf.Log, os.Stderr)
	return newApp(ctx, conf)
}
