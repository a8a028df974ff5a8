package snapshot

import (
	"context"
	"log"

	"github.com/tinytelemetry/govsnap/internal/model"
)

// Aggregator collects the votes of every proposal in a space into one table.
type Aggregator struct {
	source Source
}

// NewAggregator creates an aggregator reading from source.
func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// Votes fetches votes proposal by proposal, keeping the order of
// proposalIDs, and resolves each row's timestamp and choice label.
// The hub caps rows per request, so votes are never queried space-wide.
func (a *Aggregator) Votes(ctx context.Context, space string, proposalIDs []string) ([]model.ResolvedVote, error) {
	var rows []model.ResolvedVote
	for _, id := range proposalIDs {
		votes, err := a.source.Votes(ctx, space, id)
		if err != nil {
			return nil, err
		}
		for _, v := range votes {
			rows = append(rows, ResolveVote(v))
		}
	}

	if n := CountUnresolved(rows); n > 0 {
		log.Printf("snapshot: %s: %d/%d votes have no choice label", space, n, len(rows))
	}
	return rows, nil
}

// CountUnresolved reports how many rows carry a null choice label.
func CountUnresolved(rows []model.ResolvedVote) int {
	n := 0
	for _, r := range rows {
		if r.ChoiceLabel == nil {
			n++
		}
	}
	return n
}

// ProposalIDs returns the ids of proposals in order.
func ProposalIDs(proposals []model.Proposal) []string {
	ids := make([]string, 0, len(proposals))
	for _, p := range proposals {
		ids = append(ids, p.ID)
	}
	return ids
}
