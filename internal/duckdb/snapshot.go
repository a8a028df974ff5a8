package duckdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const snapshotAlias = "govsnap_snapshot"

// SnapshotTo writes a standalone copy of the staging database to dstPath.
// It works for in-memory stores as well: the current catalog is copied
// into a freshly attached file, which is then detached and moved into place.
func (s *Store) SnapshotTo(dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := dstPath + ".tmp"
	_ = os.Remove(tmp)

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var catalog string
	if err := conn.QueryRowContext(ctx, "SELECT current_database()").Scan(&catalog); err != nil {
		return fmt.Errorf("current database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("ATTACH %s AS %s", sqlLiteral(tmp), snapshotAlias)); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}
	_, copyErr := conn.ExecContext(ctx, fmt.Sprintf("COPY FROM DATABASE %s TO %s", quoteIdent(catalog), snapshotAlias))
	if _, err := conn.ExecContext(ctx, "DETACH "+snapshotAlias); err != nil && copyErr == nil {
		copyErr = fmt.Errorf("detach snapshot: %w", err)
	}
	if copyErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("copy database: %w", copyErr)
	}

	_ = os.Remove(tmp + ".wal")
	return os.Rename(tmp, dstPath)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
