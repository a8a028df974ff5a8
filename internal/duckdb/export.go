package duckdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Flattened export projections. Nested hub fields keep their dotted names
// and the renamed vote columns use their output names.
const (
	proposalsProjection = `id, title, body, choices,
		start_ts AS "start", end_ts AS "end", snapshot, state, author,
		space_id AS "space.id", space_name AS "space.name"`

	votesProjection = `voter, vp AS voting_power, vp_state, created_date,
		choice_raw AS choice_int,
		proposal_id AS "proposal.id", proposal_title AS "proposal.title",
		proposal_choices AS "proposal.choices", space_id AS "space.id", choice_str`
)

// ExportProposalsCSV writes the run's proposals to path with a header row
// and no index column, in insertion order.
func (s *Store) ExportProposalsCSV(runID, path string) error {
	return s.exportCSV("proposals", proposalsProjection, runID, path)
}

// ExportVotesCSV writes the run's resolved votes to path with a header row
// and no index column, in insertion order.
func (s *Store) ExportVotesCSV(runID, path string) error {
	return s.exportCSV("votes", votesProjection, runID, path)
}

func (s *Store) exportCSV(table, projection, runID, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	// COPY takes no bind parameters, so both values are inlined as literals.
	query := fmt.Sprintf(
		"COPY (SELECT %s FROM %s WHERE run_id = %s ORDER BY seq) TO %s (FORMAT CSV, HEADER, DELIMITER ',')",
		projection, table, sqlLiteral(runID), sqlLiteral(path),
	)

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("copy %s to %s: %w", table, path, err)
	}
	return nil
}

// RunCounts returns the number of staged proposals and votes for a run.
func (s *Store) RunCounts(runID string) (proposals, votes int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	err = s.db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM proposals WHERE run_id = ?), (SELECT COUNT(*) FROM votes WHERE run_id = ?)",
		runID, runID,
	).Scan(&proposals, &votes)
	return proposals, votes, err
}

// sqlLiteral quotes s as a SQL string literal.
func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
