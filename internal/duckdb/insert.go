package duckdb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tinytelemetry/govsnap/internal/model"
)

// InsertProposals appends proposals to the run's table in a single
// transaction. The insertion order is the export order.
func (s *Store) InsertProposals(runID string, proposals []model.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, `INSERT INTO proposals (run_id, id, title, body, choices, start_ts, end_ts, snapshot, state, author, space_id, space_name) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(stmt *sql.Stmt) error {
			for _, p := range proposals {
				choices, err := jsonList(p.Choices)
				if err != nil {
					return fmt.Errorf("proposal %s choices: %w", p.ID, err)
				}
				if _, err := stmt.ExecContext(ctx,
					runID, p.ID, p.Title, p.Body, choices, p.Start, p.End,
					p.Snapshot, p.State, p.Author, p.Space.ID, p.Space.Name,
				); err != nil {
					return fmt.Errorf("proposal %s insert: %w", p.ID, err)
				}
			}
			return nil
		})
}

// InsertVotes appends resolved votes to the run's table in a single
// transaction. Null labels and empty raw choices are stored as NULL.
func (s *Store) InsertVotes(runID string, votes []model.ResolvedVote) error {
	if len(votes) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, `INSERT INTO votes (run_id, voter, vp, vp_state, created, created_date, choice_raw, choice_kind, proposal_id, proposal_title, proposal_choices, space_id, choice_str) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(stmt *sql.Stmt) error {
			for _, v := range votes {
				choices, err := jsonList(v.Proposal.Choices)
				if err != nil {
					return fmt.Errorf("vote %s/%s choices: %w", v.Proposal.ID, v.Voter, err)
				}
				var label any
				if v.ChoiceLabel != nil {
					label = *v.ChoiceLabel
				}
				if _, err := stmt.ExecContext(ctx,
					runID, v.Voter, v.VP, v.VPState, v.Created, v.CreatedDate,
					nullable(v.Choice.Text()), v.Choice.Kind().String(),
					v.Proposal.ID, v.Proposal.Title, choices, v.Space.ID, label,
				); err != nil {
					return fmt.Errorf("vote %s/%s insert: %w", v.Proposal.ID, v.Voter, err)
				}
			}
			return nil
		})
}

// inTx prepares query inside a transaction and hands the statement to fn.
// The transaction is rolled back unless fn succeeds.
func (s *Store) inTx(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// jsonList encodes a list cell; a missing list is written as [].
func jsonList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
