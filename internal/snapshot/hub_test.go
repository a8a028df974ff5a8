package snapshot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/tinytelemetry/govsnap/internal/graphql"
	"github.com/tinytelemetry/govsnap/internal/model"
)

var (
	firstArg    = regexp.MustCompile(`first:\s*(\d+)`)
	skipArg     = regexp.MustCompile(`skip:\s*(\d+)`)
	spaceArg    = regexp.MustCompile(`space(?:_in)?:\s*\[?"([^"]+)"`)
	proposalArg = regexp.MustCompile(`proposal:\s*"([^"]+)"`)
)

// fakeHub serves canned proposals and votes over GraphQL, honouring the
// first/skip window of each request.
type fakeHub struct {
	mu        sync.Mutex
	proposals map[string][]model.Proposal
	votes     map[string][]json.RawMessage // keyed by proposal id
	failSpace  string
	ignoreSkip bool
	requests  []string
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		proposals: make(map[string][]model.Proposal),
		votes:     make(map[string][]json.RawMessage),
	}
}

func (h *fakeHub) addProposal(p model.Proposal, votes ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.proposals[p.Space.ID] = append(h.proposals[p.Space.ID], p)
	for _, v := range votes {
		h.votes[p.ID] = append(h.votes[p.ID], json.RawMessage(v))
	}
}

func (h *fakeHub) requestLog() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.requests...)
}

func (h *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	first := atoiMatch(firstArg, req.Query)
	skip := atoiMatch(skipArg, req.Query)
	space := match(spaceArg, req.Query)

	h.mu.Lock()
	defer h.mu.Unlock()

	offset := skip
	if h.ignoreSkip {
		offset = 0
	}

	if space == h.failSpace {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
		return
	}

	var data map[string]any
	if id := match(proposalArg, req.Query); id != "" {
		h.requests = append(h.requests, "votes:"+id+":"+strconv.Itoa(skip))
		data = map[string]any{"votes": window(h.votes[id], first, offset)}
	} else {
		h.requests = append(h.requests, "proposals:"+space+":"+strconv.Itoa(skip))
		data = map[string]any{"proposals": window(h.proposals[space], first, offset)}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func window[T any](items []T, first, skip int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := skip + first
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

func match(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return ""
}

func atoiMatch(re *regexp.Regexp, s string) int {
	n, _ := strconv.Atoi(match(re, s))
	return n
}

// startHub serves h and returns a client that does not retry.
func startHub(t *testing.T, h *fakeHub) *graphql.Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return graphql.NewClient(server.URL, graphql.WithRetryConfig(graphql.RetryConfig{MaxAttempts: 1}))
}

func voteJSON(proposal model.Proposal, voter string, choice string) string {
	choices, _ := json.Marshal(proposal.Choices)
	title, _ := json.Marshal(proposal.Title)
	return `{"proposal":{"id":"` + proposal.ID + `","title":` + string(title) + `,"choices":` + string(choices) +
		`},"voter":"` + voter + `","vp":1.5,"vp_state":"final","created":1650000000,"choice":` + choice +
		`,"space":{"id":"` + proposal.Space.ID + `"}}`
}
