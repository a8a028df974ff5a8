package model

import "time"

// Shared defaults used by the CLI and the pipeline packages.
const (
	DefaultEndpoint         = "https://hub.snapshot.org/graphql"
	DefaultNamespaceDelay   = 60 * time.Second
	DefaultProposalPageSize = 100000
	DefaultVotePageSize     = 1000000
)

// DefaultSpaces is the space list used when no configuration overrides it.
var DefaultSpaces = []string{"uniswap", "sushigov.eth", "curve.eth", "cake.eth", "balancer.eth"}

// Export file name prefixes and the timestamp layout embedded in them.
const (
	ProposalsFilePrefix = "snapshot_proposals_df_"
	VotesFilePrefix     = "snapshot_votes_df_"
	StagingFilePrefix   = "snapshot_staging_"
	ExportTimeLayout    = "20060102-150405"
)

// Flattened column names of the exported tables, in output order.
var (
	ProposalColumns = []string{
		"id", "title", "body", "choices", "start", "end", "snapshot",
		"state", "author", "space.id", "space.name",
	}
	VoteColumns = []string{
		"voter", "voting_power", "vp_state", "created_date", "choice_int",
		"proposal.id", "proposal.title", "proposal.choices", "space.id", "choice_str",
	}
)
