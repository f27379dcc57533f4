package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string      `json:"db_path"`
	DBSizeBytes   int64       `json:"db_size_bytes"`
	Conversations int         `json:"conversations"`
	Messages      int         `json:"messages"`
	Passages      int         `json:"passages"`
	GraphVersions int         `json:"graph_versions"`
	Roles         []RoleStats `json:"roles"`
}

// RoleStats holds per-role message counts.
type RoleStats struct {
	Role      string `json:"role"`
	Count     int    `json:"count"`
	Failed    int    `json:"failed"`
	Cancelled int    `json:"cancelled"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM conversations`, &st.Conversations},
		{`SELECT COUNT(*) FROM messages`, &st.Messages},
		{`SELECT COUNT(*) FROM passages`, &st.Passages},
		{`SELECT COUNT(*) FROM concept_graphs`, &st.GraphVersions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return st, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, COUNT(*),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END)
		FROM messages GROUP BY role ORDER BY role`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var r RoleStats
		if err := rows.Scan(&r.Role, &r.Count, &r.Failed, &r.Cancelled); err != nil {
			return st, err
		}
		st.Roles = append(st.Roles, r)
	}
	return st, rows.Err()
}
