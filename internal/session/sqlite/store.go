// Package sqlite is a SQLite-backed SessionStore for single-instance
// deployments that need sessions to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/session"
)

// Store is a SQLite implementation of session.Store.
type Store struct {
	db *sql.DB
}

var _ session.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			key TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			context TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_key TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (session_key) REFERENCES sessions(key) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_key)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state, context, created_at, updated_at FROM sessions WHERE key = ?`, key)

	var (
		state      string
		contextRaw string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&state, &contextRaw, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("session " + key + " not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess := &domain.Session{
		Key:       key,
		State:     domain.State(state),
		Context:   make(map[string]string),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if contextRaw != "" {
		if err := json.Unmarshal([]byte(contextRaw), &sess.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session context: %w", err)
		}
	}
	return sess, nil
}

func (s *Store) Create(ctx context.Context, key string) (*domain.Session, error) {
	sess := domain.NewSession(key)

	contextRaw, err := json.Marshal(sess.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session context: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (key, state, context, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, string(sess.State), string(contextRaw), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// First contact may have raced another writer; read back the row that
	// actually exists.
	return s.Get(ctx, key)
}

func (s *Store) Update(ctx context.Context, key string, state domain.State, contextPatch map[string]string) error {
	sess, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	for k, v := range contextPatch {
		if v == "" {
			delete(sess.Context, k)
			continue
		}
		sess.Context[k] = v
	}

	contextRaw, err := json.Marshal(sess.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal session context: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, context = ?, updated_at = ? WHERE key = ?`,
		string(state), string(contextRaw), time.Now(), key)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, key string, turn domain.Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (session_key, role, text, created_at) VALUES (?, ?, ?, ?)`,
		key, string(turn.Role), turn.Text, turn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *Store) RecentHistory(ctx context.Context, key string, n int) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, text, created_at FROM history
		 WHERE session_key = ? ORDER BY id DESC LIMIT ?`, key, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var role string
		if err := rows.Scan(&role, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		t.Role = domain.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	// Query returned newest first; callers expect oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
