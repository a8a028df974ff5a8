package model

import "time"

// Space identifies the governance namespace a record belongs to.
type Space struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Proposal is one closed governance proposal as returned by the hub.
type Proposal struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Choices  []string `json:"choices"`
	Start    int64    `json:"start"`
	End      int64    `json:"end"`
	Snapshot string   `json:"snapshot"`
	State    string   `json:"state"`
	Author   string   `json:"author"`
	Space    Space    `json:"space"`
}

// VoteProposal is the parent-proposal reference embedded in every vote.
type VoteProposal struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Choices []string `json:"choices"`
}

// Vote is a single voter's submission on a proposal.
type Vote struct {
	Proposal VoteProposal `json:"proposal"`
	Voter    string       `json:"voter"`
	VP       float64      `json:"vp"`
	VPState  string       `json:"vp_state"`
	Created  int64        `json:"created"` // unix seconds
	Choice   Choice       `json:"choice"`
	Space    Space        `json:"space"`
}

// ResolvedVote is a Vote with its calendar timestamp and human-readable
// choice label attached. ChoiceLabel is nil when the choice could not be
// mapped onto the proposal's choice list.
type ResolvedVote struct {
	Vote
	CreatedDate time.Time
	ChoiceLabel *string
}

// RunSummary describes the outcome of one export run.
type RunSummary struct {
	RunID         string
	Spaces        []string
	Proposals     int
	Votes         int
	Unresolved    int
	Stamp         string // export timestamp shared by the run's files
	ProposalsPath string
	VotesPath     string
	StartedAt     time.Time
	Duration      time.Duration
}

// RunInfo is one recorded export run.
type RunInfo struct {
	RunID      string    `json:"run_id"`
	Spaces     []string  `json:"spaces"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}
