// Package snapshot pulls proposals and votes for governance spaces from the
// Snapshot hub and stages them for CSV export.
package snapshot

import (
	"context"
	"fmt"
	"log"

	"github.com/tinytelemetry/govsnap/internal/model"
)

// Executor runs one GraphQL query and decodes its data object into out.
type Executor interface {
	Execute(ctx context.Context, query string, out any) error
}

// Source is the read side of the hub used by the aggregator and orchestrator.
type Source interface {
	Proposals(ctx context.Context, space string) ([]model.Proposal, error)
	Votes(ctx context.Context, space, proposalID string) ([]model.Vote, error)
}

// FetcherConfig holds page-size ceilings for the two queries.
type FetcherConfig struct {
	ProposalPageSize int
	VotePageSize     int
}

// Fetcher builds proposal and vote queries and decodes their results.
type Fetcher struct {
	exec             Executor
	proposalPageSize int
	votePageSize     int
}

// NewFetcher creates a fetcher. Zero page sizes fall back to the defaults.
func NewFetcher(exec Executor, cfg FetcherConfig) *Fetcher {
	if cfg.ProposalPageSize <= 0 {
		cfg.ProposalPageSize = model.DefaultProposalPageSize
	}
	if cfg.VotePageSize <= 0 {
		cfg.VotePageSize = model.DefaultVotePageSize
	}
	return &Fetcher{
		exec:             exec,
		proposalPageSize: cfg.ProposalPageSize,
		votePageSize:     cfg.VotePageSize,
	}
}

// Proposals returns every closed proposal of space, newest first. A page
// that comes back full triggers a follow-up request at the next offset.
func (f *Fetcher) Proposals(ctx context.Context, space string) ([]model.Proposal, error) {
	all, err := paginate(f.proposalPageSize, func(p model.Proposal) string { return p.ID },
		func(skip int) ([]model.Proposal, error) {
			var resp struct {
				Proposals []model.Proposal `json:"proposals"`
			}
			err := f.exec.Execute(ctx, ProposalsQuery(space, f.proposalPageSize, skip), &resp)
			return resp.Proposals, err
		})
	if err != nil {
		return nil, fmt.Errorf("fetch proposals for %s: %w", space, err)
	}
	return all, nil
}

// Votes returns every vote cast on proposalID within space.
func (f *Fetcher) Votes(ctx context.Context, space, proposalID string) ([]model.Vote, error) {
	all, err := paginate(f.votePageSize, func(v model.Vote) string { return v.Voter },
		func(skip int) ([]model.Vote, error) {
			var resp struct {
				Votes []model.Vote `json:"votes"`
			}
			err := f.exec.Execute(ctx, VotesQuery(space, proposalID, f.votePageSize, skip), &resp)
			return resp.Votes, err
		})
	if err != nil {
		return nil, fmt.Errorf("fetch votes for %s/%s: %w", space, proposalID, err)
	}
	return all, nil
}

// paginate requests pages until one comes back short. A full page that
// starts with the same key as the previous one means the upstream ignored
// skip; that page is dropped and paging stops.
func paginate[T any](pageSize int, key func(T) string, fetch func(skip int) ([]T, error)) ([]T, error) {
	var all []T
	var prevFirst string
	for skip := 0; ; {
		page, err := fetch(skip)
		if err != nil {
			return nil, err
		}
		if skip > 0 && len(page) > 0 && key(page[0]) == prevFirst {
			log.Printf("snapshot: page at skip=%d repeats the previous page, stopping", skip)
			return all, nil
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		prevFirst = key(page[0])
		skip += len(page)
	}
}
