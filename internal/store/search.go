package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/nextstep/internal/chunker"
	"github.com/rcliao/nextstep/internal/model"
)

// SearchResult wraps a message with the first passage that matched.
type SearchResult struct {
	model.Message
	Match *chunker.Passage `json:"match,omitempty"`
}

// SearchMessages finds messages whose passages or options contain the query
// substring (case-insensitive for ASCII), newest first.
func (s *SQLiteStore) SearchMessages(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, errors.New("empty search query")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	like := "%" + escapeLike(query) + "%"
	where := []string{`(ps.text LIKE ? ESCAPE '\' OR m.options LIKE ? ESCAPE '\')`}
	args := []interface{}{like, like}

	if p.ConversationID != "" {
		where = append(where, "m.conversation_id = ?")
		args = append(args, p.ConversationID)
	}
	if p.Role != "" {
		where = append(where, "m.role = ?")
		args = append(args, p.Role)
	}

	q := fmt.Sprintf(`
		SELECT `+messageColumns+`, ps.seq, ps.text, ps.start_line, ps.end_line
		FROM messages m
		LEFT JOIN passages ps ON ps.message_id = m.id
		WHERE %s
		ORDER BY m.created_at DESC, m.seq DESC, ps.seq`, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	index := map[string]int{}
	needle := strings.ToLower(query)
	for rows.Next() {
		var m model.Message
		var seq, startLine, endLine sql.NullInt64
		var text sql.NullString
		err := scanInto(rows, &m, func(dest ...interface{}) []interface{} {
			return append(dest, &seq, &text, &startLine, &endLine)
		})
		if err != nil {
			return nil, err
		}

		i, ok := index[m.ID]
		if !ok {
			if len(results) >= limit {
				continue
			}
			i = len(results)
			index[m.ID] = i
			results = append(results, SearchResult{Message: m})
		}
		if results[i].Match == nil && text.Valid && strings.Contains(strings.ToLower(text.String), needle) {
			results[i].Match = &chunker.Passage{
				Seq:       int(seq.Int64),
				Text:      text.String,
				StartLine: int(startLine.Int64),
				EndLine:   int(endLine.Int64),
			}
		}
	}
	return results, rows.Err()
}

// scanInto scans a message row that carries extra trailing columns.
func scanInto(row scanner, m *model.Message, extra func(dest ...interface{}) []interface{}) error {
	var err error
	*m, err = scanMessage(scannerFunc(func(dest ...interface{}) error {
		return row.Scan(extra(dest...)...)
	}))
	return err
}

type scannerFunc func(dest ...interface{}) error

func (f scannerFunc) Scan(dest ...interface{}) error { return f(dest...) }

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
