package question

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tbxark/interviewagent/types"
)

// SQLiteRepository stores questions and options in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and creates the tables if needed.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	repo := &SQLiteRepository{db: db}
	if err := repo.CreateTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// CreateTables creates the question and option tables if they don't exist.
func (r *SQLiteRepository) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			group_id TEXT NOT NULL,
			language TEXT NOT NULL,
			text TEXT NOT NULL,
			type TEXT NOT NULL,
			approved INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS options (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			question_id TEXT NOT NULL,
			text TEXT NOT NULL,
			approved INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			FOREIGN KEY (question_id) REFERENCES questions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_language ON questions(language)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_group ON questions(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id)`,
	}
	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) AddQuestion(ctx context.Context, q Question) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO questions (id, group_id, language, text, type, approved, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		q.ID, q.GroupID, q.Language, q.Text, string(q.Type), q.Approved, string(q.Status), q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AddOption(ctx context.Context, o Option) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO options (id, question_id, text, approved, status) VALUES (?, ?, ?, ?, ?)",
		o.ID, o.QuestionID, o.Text, o.Approved, string(o.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert option: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetQuestionApproval(ctx context.Context, questionID string, approved bool, status Status) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE questions SET approved = ?, status = ? WHERE id = ?",
		approved, string(status), questionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update question approval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	return nil
}

func (r *SQLiteRepository) SetOptionApproval(ctx context.Context, optionID string, approved bool, status Status) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE options SET approved = ?, status = ? WHERE id = ?",
		approved, string(status), optionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update option approval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("option not found: %s", optionID)
	}
	return nil
}

const questionColumns = "q.id, q.group_id, q.language, q.text, q.type, q.approved, q.status, q.created_at"

func (r *SQLiteRepository) FullyApprovedQuestions(ctx context.Context, language string) ([]Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions q
		WHERE q.language = ? AND q.approved = 1 AND q.status = 'approved'
		AND NOT EXISTS (
			SELECT 1 FROM questions v
			WHERE v.group_id = q.group_id AND (
				v.approved = 0 OR v.status != 'approved'
				OR (v.type = 'choice' AND NOT EXISTS (
					SELECT 1 FROM options o
					WHERE o.question_id = v.id AND o.approved = 1 AND o.status = 'approved'
				))
			)
		)
		ORDER BY q.seq`
	return r.queryQuestions(ctx, query, language)
}

func (r *SQLiteRepository) ApprovedQuestions(ctx context.Context, language string) ([]Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions q
		WHERE q.language = ? AND q.approved = 1 AND q.status = 'approved'
		ORDER BY q.seq`
	return r.queryQuestions(ctx, query, language)
}

func (r *SQLiteRepository) ApprovedOptions(ctx context.Context, questionID string) ([]Option, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, question_id, text, approved, status FROM options WHERE question_id = ? AND approved = 1 AND status = 'approved' ORDER BY seq",
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Option
	for rows.Next() {
		var o Option
		var status string
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Approved, &status); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Question(ctx context.Context, questionID string) (*Question, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions q WHERE q.id = ?`, questionID)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

func (r *SQLiteRepository) queryQuestions(ctx context.Context, query string, args ...any) ([]Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s scanner) (*Question, error) {
	var q Question
	var qType, status string
	if err := s.Scan(&q.ID, &q.GroupID, &q.Language, &q.Text, &qType, &q.Approved, &status, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.Type = types.QuestionType(qType)
	q.Status = Status(status)
	return &q, nil
}

var (
	_ Repository = (*SQLiteRepository)(nil)
	_ Writer     = (*SQLiteRepository)(nil)
)
