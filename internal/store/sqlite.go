package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/nextstep/internal/chunker"
	"github.com/rcliao/nextstep/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id               TEXT PRIMARY KEY,
		conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		seq              INTEGER NOT NULL,
		role             TEXT NOT NULL,
		content          TEXT NOT NULL,
		reasoning        TEXT,
		options          TEXT,
		selected         TEXT,
		status           TEXT NOT NULL DEFAULT 'complete',
		created_at       TEXT NOT NULL,
		UNIQUE (conversation_id, seq)
	);

	CREATE TABLE IF NOT EXISTS passages (
		id          TEXT PRIMARY KEY,
		message_id  TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		start_line  INTEGER,
		end_line    INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_passages_message ON passages(message_id);

	CREATE TABLE IF NOT EXISTS concept_graphs (
		id               TEXT PRIMARY KEY,
		conversation_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		version          INTEGER NOT NULL,
		supersedes       INTEGER,
		node_count       INTEGER NOT NULL,
		root             TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		UNIQUE (conversation_id, version)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	now := time.Now().UTC()
	c := &model.Conversation{
		ID:        s.newID(),
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, p ListParams) ([]model.Conversation, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations
		 ORDER BY updated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, p AppendParams) (*model.Message, error) {
	if !model.ValidRoles[p.Role] {
		return nil, fmt.Errorf("invalid role %q", p.Role)
	}
	status := p.Status
	if status == "" {
		status = model.StatusComplete
	}
	if !model.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	now := time.Now().UTC()
	id := s.newID()

	optionsJSON, err := nullableJSON(p.Options, len(p.Options) > 0)
	if err != nil {
		return nil, err
	}
	selectedJSON, err := nullableJSON(p.Selected, p.Selected != nil)
	if err != nil {
		return nil, err
	}
	var reasoning *string
	if p.Reasoning != "" {
		reasoning = &p.Reasoning
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`,
		formatTime(now), p.ConversationID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("conversation %s: %w", p.ConversationID, ErrNotFound)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`,
		p.ConversationID).Scan(&seq); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, seq, role, content, reasoning, options, selected, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.ConversationID, seq, p.Role, p.Content, reasoning, optionsJSON, selectedJSON,
		status, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	for _, ps := range chunker.Passages(p.Content, chunker.DefaultSize) {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO passages (id, message_id, seq, text, start_line, end_line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.newID(), id, ps.Seq, ps.Text, ps.StartLine, ps.EndLine)
		if err != nil {
			return nil, fmt.Errorf("insert passage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Message{
		ID:             id,
		ConversationID: p.ConversationID,
		Role:           p.Role,
		Content:        p.Content,
		Reasoning:      p.Reasoning,
		Options:        p.Options,
		Selected:       p.Selected,
		Status:         status,
		CreatedAt:      now,
	}, nil
}

func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages m WHERE m.conversation_id = ? ORDER BY m.seq`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const messageColumns = `m.id, m.conversation_id, m.role, m.content, m.reasoning, m.options, m.selected, m.status, m.created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row scanner) (model.Conversation, error) {
	var c model.Conversation
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Title, &createdAt, &updatedAt); err != nil {
		return c, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

func scanMessage(row scanner) (model.Message, error) {
	var m model.Message
	var reasoning, options, selected sql.NullString
	var createdAt string

	err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &reasoning,
		&options, &selected, &m.Status, &createdAt)
	if err != nil {
		return m, err
	}

	m.CreatedAt = parseTime(createdAt)
	m.Reasoning = reasoning.String
	if options.Valid {
		if err := json.Unmarshal([]byte(options.String), &m.Options); err != nil {
			return m, fmt.Errorf("message %s options: %w", m.ID, err)
		}
	}
	if selected.Valid {
		m.Selected = &model.RecommendationOption{}
		if err := json.Unmarshal([]byte(selected.String), m.Selected); err != nil {
			return m, fmt.Errorf("message %s selected: %w", m.ID, err)
		}
	}
	return m, nil
}

func nullableJSON(v any, present bool) (*string, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// timeFormat is fixed-width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
