package duckdb

import (
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/tinytelemetry/govsnap/internal/model"
)

// maxQueryRows caps rows returned by ExecuteQuery.
const maxQueryRows = 1000

// dangerousKeywordPattern matches write and side-effect keywords at word
// boundaries so that "RESET" does not match "SET".
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|DETACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET)\b`,
)

// blockCommentPattern matches C-style block comments (/* ... */).
var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

// stripSQLComments removes -- line comments and /* */ block comments.
func stripSQLComments(query string) string {
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	var result strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return result.String()
}

// validateReadOnly rejects anything but a single SELECT/WITH statement.
func validateReadOnly(query string) error {
	if strings.Contains(query, ";") {
		return fmt.Errorf("query must not contain semicolons")
	}
	stripped := strings.TrimSpace(stripSQLComments(query))
	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT/WITH queries are allowed")
	}
	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return fmt.Errorf("query contains disallowed keyword: %s", strings.ToUpper(match))
	}
	return nil
}

// ExecuteQuery runs a read-only SQL query and returns up to 1000 rows as maps.
func (s *Store) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(query)
	if err := validateReadOnly(trimmed); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			log.Printf("duckdb scan error (ExecuteQuery): %v", err)
			continue
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// GetSchemaDescription returns a human-readable description of the staging tables.
func (s *Store) GetSchemaDescription() string {
	return `Table 'export_runs': run_id (VARCHAR), spaces (VARCHAR, comma separated), ` +
		`status (VARCHAR: running/completed/failed), started_at (TIMESTAMP), finished_at (TIMESTAMP). ` +
		`Table 'proposals': seq (BIGINT), run_id, id, title, body, choices (JSON array), ` +
		`start_ts (BIGINT unix), end_ts (BIGINT unix), snapshot, state, author, space_id, space_name. ` +
		`Table 'votes': seq (BIGINT), run_id, voter, vp (DOUBLE), vp_state, created (BIGINT unix), ` +
		`created_date (TIMESTAMP), choice_raw, choice_kind (empty/single/ranked/malformed), ` +
		`proposal_id, proposal_title, proposal_choices (JSON array), space_id, choice_str.`
}

// TableRowCounts returns the row count for each staging table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	allowedTables := []string{"export_runs", "proposals", "votes"}
	counts := make(map[string]int64, len(allowedTables))

	for _, table := range allowedTables {
		var count int64
		// Table names are hardcoded constants, not user input.
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

// ListRuns returns recorded runs, newest first.
func (s *Store) ListRuns(limit int) ([]model.RunInfo, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, spaces, status, started_at, finished_at FROM export_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunInfo
	for rows.Next() {
		var (
			r        model.RunInfo
			spaces   string
			finished sql.NullTime
		)
		if err := rows.Scan(&r.RunID, &spaces, &r.Status, &r.StartedAt, &finished); err != nil {
			log.Printf("duckdb scan error (ListRuns): %v", err)
			continue
		}
		if spaces != "" {
			r.Spaces = strings.Split(spaces, ",")
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
