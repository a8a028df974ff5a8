package model

// RunWriter stages the tables of one export run.
type RunWriter interface {
	BeginRun(runID string, spaces []string) error
	InsertProposals(runID string, proposals []Proposal) error
	InsertVotes(runID string, votes []ResolvedVote) error
	FinishRun(runID string, status string) error
}

// RunExporter writes the staged tables of a run as CSV files.
type RunExporter interface {
	ExportProposalsCSV(runID, path string) error
	ExportVotesCSV(runID, path string) error
}

// RunStore is the full staging contract used by the orchestrator.
type RunStore interface {
	RunWriter
	RunExporter
}

// SchemaQuerier provides schema introspection and arbitrary read-only queries.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// RunLister lists recorded export runs, newest first.
type RunLister interface {
	ListRuns(limit int) ([]RunInfo, error)
}
