package engine

import (
	"context"
	"log/slog"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/interviewagent/session"
)

// audit reports what a turn changed as a JSON merge patch.
func (e *Engine) audit(ctx context.Context, before, after *session.Session) {
	if e.onAudit == nil && !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}
	patch, err := sessionPatch(before, after)
	if err != nil {
		slog.Warn("Failed to compute session patch", "session_id", after.ID, "error", err)
		return
	}
	slog.Debug("Session updated", "session_id", after.ID, "patch", string(patch))
	if e.onAudit != nil {
		e.onAudit(after.ID, patch)
	}
}

func sessionPatch(before, after *session.Session) ([]byte, error) {
	from, err := sonic.Marshal(before)
	if err != nil {
		return nil, err
	}
	to, err := sonic.Marshal(after)
	if err != nil {
		return nil, err
	}
	return jsonpatch.CreateMergePatch(from, to)
}
