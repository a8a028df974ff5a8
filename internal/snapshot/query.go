package snapshot

import (
	"encoding/json"
	"fmt"
)

// ProposalsQuery builds the closed-proposals query for one space, newest first.
func ProposalsQuery(space string, first, skip int) string {
	return fmt.Sprintf(`
query Proposals {
  proposals(
    first: %d,
    skip: %d,
    where: {
      space_in: [%s],
      state: "closed"
    },
    orderBy: "created",
    orderDirection: desc
  ) {
    id
    title
    body
    choices
    start
    end
    snapshot
    state
    author
    space {
      id
      name
    }
  }
}
`, first, skip, quote(space))
}

// VotesQuery builds the votes query for a single proposal within a space.
func VotesQuery(space, proposalID string, first, skip int) string {
	return fmt.Sprintf(`
query Votes {
  votes(
    first: %d,
    skip: %d,
    where: {
      space_in: [%s],
      proposal: %s
    }
  ) {
    proposal {
      id
      title
      choices
    }
    voter
    vp
    vp_state
    created
    choice
    space {
      id
    }
  }
}
`, first, skip, quote(space), quote(proposalID))
}

// quote renders s as a GraphQL string literal. GraphQL string escapes are a
// subset of JSON's, so the JSON encoding is always valid.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
