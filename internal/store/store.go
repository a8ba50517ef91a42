// Package store provides the persistence backends for tasklet: a SQLite
// database (the default) and a single JSON snapshot file.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/tasklet/internal/models"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists the task list in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func applyPragmas(db *sql.DB) error {
	stmts := []string{
		"PRAGMA foreign_keys=ON;",
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			if stmt == "PRAGMA journal_mode=WAL;" {
				log.Warn().Err(err).Msg("sqlite: WAL mode not enabled")
				continue
			}
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// --- Task list ---

// Load returns the stored list in display order. An empty database yields
// an empty list.
func (s *Store) Load(ctx context.Context) (models.TaskList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, completed FROM tasks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	list := models.TaskList{}
	index := make(map[string]int)
	for rows.Next() {
		t := models.Task{Subtasks: []models.Subtask{}}
		if err := rows.Scan(&t.ID, &t.Text, &t.Completed); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		index[t.ID] = len(list)
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subRows, err := s.db.QueryContext(ctx, `SELECT id, task_id, text, completed FROM subtasks ORDER BY task_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query subtasks: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var st models.Subtask
		var taskID string
		if err := subRows.Scan(&st.ID, &taskID, &st.Text, &st.Completed); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		i, ok := index[taskID]
		if !ok {
			continue
		}
		list[i].Subtasks = append(list[i].Subtasks, st)
	}
	return list, subRows.Err()
}

// Save replaces the stored list with list in a single transaction.
func (s *Store) Save(ctx context.Context, list models.TaskList) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subtasks`); err != nil {
		return fmt.Errorf("clear subtasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}

	now := time.Now().UTC()
	for i, t := range list {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, position, text, completed, updated_at) VALUES (?, ?, ?, ?, ?)`,
			t.ID, i, t.Text, t.Completed, now,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		for j, st := range t.Subtasks {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO subtasks (id, task_id, position, text, completed) VALUES (?, ?, ?, ?, ?)`,
				st.ID, t.ID, j, st.Text, st.Completed,
			)
			if err != nil {
				return fmt.Errorf("insert subtask: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- Journal ---

// WriteJournal appends a journal entry.
func (s *Store) WriteJournal(ctx context.Context, e models.JournalEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal (id, action, target, inputs_hash, outcome, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.Target, e.InputsHash, e.Outcome, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert journal: %w", err)
	}
	return nil
}

// ListJournal returns the newest entries first, at most limit of them.
func (s *Store) ListJournal(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, target, inputs_hash, outcome, timestamp FROM journal ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var target sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &target, &e.InputsHash, &e.Outcome, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		if target.Valid {
			e.Target = target.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
