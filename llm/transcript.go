package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// TranscriptGenerator records every request and response in a per-session log
// file under dir. Calls without a session id go to "unbound.log".
type TranscriptGenerator struct {
	next Generator
	dir  string
	mu   sync.Mutex
}

func NewTranscriptGenerator(next Generator, dir string) (*TranscriptGenerator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return &TranscriptGenerator{next: next, dir: dir}, nil
}

func (g *TranscriptGenerator) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	name, ok := SessionIDFromContext(ctx)
	if !ok || name == "" {
		name = "unbound"
	}
	g.logf(name, "=== LLM REQUEST ===\nSystem:\n%s\nPrompt:\n%s\n===================\n\n", systemPrompt, prompt)
	text, err := g.next.Generate(ctx, prompt, systemPrompt)
	if err != nil {
		g.logf(name, "=== LLM ERROR ===\n%v\n=================\n\n", err)
		return "", err
	}
	g.logf(name, "=== LLM RESPONSE ===\n%s\n====================\n\n", text)
	return text, nil
}

// Path returns the transcript file for a session id.
func (g *TranscriptGenerator) Path(sessionID string) string {
	return filepath.Join(g.dir, filepath.Base(sessionID)+".log")
}

func (g *TranscriptGenerator) logf(sessionID, format string, args ...any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	file, err := os.OpenFile(g.Path(sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer func() { _ = file.Close() }()
	timestamp := time.Now().Format("15:04:05.000")
	_, _ = fmt.Fprintf(file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
}

// AuditLog appends session change patches to "<session>.audit.jsonl" next to
// the transcripts, one JSON object per committed turn.
type AuditLog struct {
	dir string
	mu  sync.Mutex
}

type auditRecord struct {
	Time      time.Time       `json:"time"`
	SessionID string          `json:"session_id"`
	Patch     json.RawMessage `json:"patch"`
}

func NewAuditLog(dir string) (*AuditLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &AuditLog{dir: dir}, nil
}

// Path returns the audit file for a session id.
func (a *AuditLog) Path(sessionID string) string {
	return filepath.Join(a.dir, filepath.Base(sessionID)+".audit.jsonl")
}

// Record appends one patch. Write failures are logged and otherwise ignored.
func (a *AuditLog) Record(sessionID string, patch []byte) {
	line, err := sonic.Marshal(auditRecord{Time: time.Now(), SessionID: sessionID, Patch: patch})
	if err != nil {
		slog.Warn("Failed to encode audit record", "session_id", sessionID, "error", err)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	file, err := os.OpenFile(a.Path(sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("Failed to open audit log", "session_id", sessionID, "error", err)
		return
	}
	defer func() { _ = file.Close() }()
	_, _ = file.Write(append(line, '\n'))
}
