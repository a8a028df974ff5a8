package snapshot

import (
	"time"

	"github.com/tinytelemetry/govsnap/internal/model"
)

// ResolveChoice maps a vote's choice onto the proposal's 1-based choice
// list. Ranked votes resolve to their first preference. Empty, malformed
// and out-of-range choices report ok=false.
func ResolveChoice(choice model.Choice, choices []string) (label string, ok bool) {
	idx, ok := choice.First()
	if !ok {
		return "", false
	}
	if idx < 1 || idx > len(choices) {
		return "", false
	}
	return choices[idx-1], true
}

// ResolveVote converts the raw creation time and attaches the choice label,
// using the choice list carried on the vote itself.
func ResolveVote(v model.Vote) model.ResolvedVote {
	rv := model.ResolvedVote{
		Vote:        v,
		CreatedDate: time.Unix(v.Created, 0).UTC(),
	}
	if label, ok := ResolveChoice(v.Choice, v.Proposal.Choices); ok {
		rv.ChoiceLabel = &label
	}
	return rv
}
