package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/nextstep/internal/graph"
	"github.com/rcliao/nextstep/internal/model"
)

func (s *SQLiteStore) LoadConceptGraph(ctx context.Context, conversationID string) (*model.ConceptNode, error) {
	v, err := s.GraphVersion(ctx, conversationID, 0)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.Root, nil
}

// GraphVersion returns one stored graph version; version 0 means latest.
func (s *SQLiteStore) GraphVersion(ctx context.Context, conversationID string, version int) (*model.GraphVersion, error) {
	query := `SELECT conversation_id, version, supersedes, node_count, root, created_at
	          FROM concept_graphs WHERE conversation_id = ?`
	args := []interface{}{conversationID}
	if version > 0 {
		query += ` AND version = ?`
		args = append(args, version)
	} else {
		query += ` ORDER BY version DESC LIMIT 1`
	}

	v, err := scanGraphVersion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph %s@%d: %w", conversationID, version, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) SaveConceptGraph(ctx context.Context, conversationID string, root *model.ConceptNode) (*model.GraphVersion, error) {
	if root == nil {
		return nil, errors.New("save concept graph: nil root")
	}
	b, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}

	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`,
		formatTime(now), conversationID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	var prev int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM concept_graphs WHERE conversation_id = ?`,
		conversationID).Scan(&prev); err != nil {
		return nil, err
	}

	v := &model.GraphVersion{
		ConversationID: conversationID,
		Version:        prev + 1,
		Supersedes:     prev,
		NodeCount:      graph.Count(root),
		Root:           root,
		CreatedAt:      now,
	}
	var supersedes *int
	if prev > 0 {
		supersedes = &prev
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO concept_graphs (id, conversation_id, version, supersedes, node_count, root, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), conversationID, v.Version, supersedes, v.NodeCount, string(b), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert graph: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// GraphHistory returns every stored graph version, newest first.
func (s *SQLiteStore) GraphHistory(ctx context.Context, conversationID string) ([]model.GraphVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, version, supersedes, node_count, root, created_at
		 FROM concept_graphs WHERE conversation_id = ? ORDER BY version DESC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GraphVersion
	for rows.Next() {
		v, err := scanGraphVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanGraphVersion(row scanner) (model.GraphVersion, error) {
	var v model.GraphVersion
	var supersedes sql.NullInt64
	var root, createdAt string

	if err := row.Scan(&v.ConversationID, &v.Version, &supersedes, &v.NodeCount, &root, &createdAt); err != nil {
		return v, err
	}
	v.Supersedes = int(supersedes.Int64)
	v.CreatedAt = parseTime(createdAt)
	v.Root = &model.ConceptNode{}
	if err := json.Unmarshal([]byte(root), v.Root); err != nil {
		return v, fmt.Errorf("decode graph %s@%d: %w", v.ConversationID, v.Version, err)
	}
	return v, nil
}
