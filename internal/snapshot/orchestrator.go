package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tinytelemetry/govsnap/internal/model"
)

// Run status values recorded by the store.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Config controls one batch run.
type Config struct {
	Spaces         []string
	NamespaceDelay time.Duration
	OutputDir      string

	// Now returns the wall-clock time embedded in export file names.
	// Nil means time.Now.
	Now func() time.Time
}

// Orchestrator walks the configured spaces, stages their proposals and
// votes, and exports both tables once every space has been pulled.
type Orchestrator struct {
	source     Source
	aggregator *Aggregator
	store      model.RunStore
	cfg        Config
	wait       func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator. It returns an error when no
// spaces are configured.
func NewOrchestrator(source Source, store model.RunStore, cfg Config) (*Orchestrator, error) {
	if len(cfg.Spaces) == 0 {
		return nil, errors.New("snapshot: no spaces configured")
	}
	if store == nil {
		return nil, errors.New("snapshot: nil store")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		source:     source,
		aggregator: NewAggregator(source),
		store:      store,
		cfg:        cfg,
		wait:       sleepCtx,
	}, nil
}

// Run pulls every space in order and writes the two CSV exports. Any fetch
// or staging error aborts the run before anything is written.
func (o *Orchestrator) Run(ctx context.Context) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		RunID:     uuid.NewString(),
		Spaces:    append([]string(nil), o.cfg.Spaces...),
		StartedAt: time.Now(),
	}

	if err := o.store.BeginRun(summary.RunID, summary.Spaces); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	if err := o.run(ctx, summary); err != nil {
		if ferr := o.store.FinishRun(summary.RunID, RunStatusFailed); ferr != nil {
			log.Printf("snapshot: mark run %s failed: %v", summary.RunID, ferr)
		}
		return nil, err
	}

	if err := o.store.FinishRun(summary.RunID, RunStatusCompleted); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	summary.Duration = time.Since(summary.StartedAt)
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context, summary *model.RunSummary) error {
	for i, space := range o.cfg.Spaces {
		log.Printf("snapshot: pulling %s data...", space)

		proposals, err := o.source.Proposals(ctx, space)
		if err != nil {
			return err
		}
		if err := o.store.InsertProposals(summary.RunID, proposals); err != nil {
			return fmt.Errorf("stage proposals for %s: %w", space, err)
		}

		votes, err := o.aggregator.Votes(ctx, space, ProposalIDs(proposals))
		if err != nil {
			return err
		}
		if err := o.store.InsertVotes(summary.RunID, votes); err != nil {
			return fmt.Errorf("stage votes for %s: %w", space, err)
		}

		summary.Proposals += len(proposals)
		summary.Votes += len(votes)
		summary.Unresolved += CountUnresolved(votes)
		log.Printf("snapshot: %s: %d proposals, %d votes", space, len(proposals), len(votes))

		// Consecutive large requests trip upstream gateway timeouts.
		if i < len(o.cfg.Spaces)-1 && o.cfg.NamespaceDelay > 0 {
			if err := o.wait(ctx, o.cfg.NamespaceDelay); err != nil {
				return err
			}
		}
	}

	return o.export(summary)
}

func (o *Orchestrator) export(summary *model.RunSummary) error {
	if err := os.MkdirAll(o.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	stamp := o.cfg.Now().Format(model.ExportTimeLayout)
	proposalsPath := filepath.Join(o.cfg.OutputDir, model.ProposalsFilePrefix+stamp+".csv")
	votesPath := filepath.Join(o.cfg.OutputDir, model.VotesFilePrefix+stamp+".csv")

	if err := o.store.ExportProposalsCSV(summary.RunID, proposalsPath); err != nil {
		return fmt.Errorf("export proposals: %w", err)
	}
	if err := o.store.ExportVotesCSV(summary.RunID, votesPath); err != nil {
		_ = os.Remove(proposalsPath)
		return fmt.Errorf("export votes: %w", err)
	}

	summary.Stamp = stamp
	summary.ProposalsPath = proposalsPath
	summary.VotesPath = votesPath
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
