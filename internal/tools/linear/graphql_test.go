package linear_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/httpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

const (
	teamID  = "5b1b0f8e-1c1e-4c9a-9a57-111111111111"
	stateID = "5b1b0f8e-1c1e-4c9a-9a57-222222222222"
	userID  = "5b1b0f8e-1c1e-4c9a-9a57-333333333333"
)

type gqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Auth          string         `json:"-"`
}

// fakeLinearAPI answers by operation name and records each request.
type fakeLinearAPI struct {
	mu        sync.Mutex
	requests  []gqlRequest
	responses map[string]any
}

func (f *fakeLinearAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	req.Auth = r.Header.Get("Authorization")

	f.mu.Lock()
	f.requests = append(f.requests, req)
	resp, ok := f.responses[req.OperationName]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		resp = map[string]any{"errors": []any{map[string]any{
			"message":    "unknown operation " + req.OperationName,
			"extensions": map[string]any{"code": "GRAPHQL_VALIDATION_FAILED"},
		}}}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeLinearAPI) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ops []string
	for _, r := range f.requests {
		ops = append(ops, r.OperationName)
	}
	return ops
}

func (f *fakeLinearAPI) last(op string) gqlRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].OperationName == op {
			return f.requests[i]
		}
	}
	return gqlRequest{}
}

func gqlIssue(title string) map[string]any {
	return map[string]any{
		"id": "i1", "identifier": "ENG-7", "title": title, "priority": 2,
		"state": map[string]any{"name": "Todo"}, "team": map[string]any{"key": "ENG"},
		"labels": map[string]any{"nodes": []any{}},
	}
}

var _ = Describe("GraphQL", func() {
	var (
		ctx    context.Context
		api    *fakeLinearAPI
		srv    *httptest.Server
		gql    *linear.GraphQL
		apiKey string
	)

	BeforeEach(func() {
		ctx = context.Background()
		apiKey = "lin_api_0123456789abcdef"
		api = &fakeLinearAPI{responses: map[string]any{
			"Teams": map[string]any{"data": map[string]any{"teams": map[string]any{
				"nodes": []any{map[string]any{"id": teamID, "key": "ENG", "name": "Engineering"}},
			}}},
			"TeamStates": map[string]any{"data": map[string]any{"team": map[string]any{
				"states": map[string]any{"nodes": []any{
					map[string]any{"id": "other", "name": "Backlog"},
					map[string]any{"id": stateID, "name": "In Progress"},
				}},
				"labels": map[string]any{"nodes": []any{map[string]any{"id": "l1", "name": "bug"}}},
			}}},
			"Viewer":    map[string]any{"data": map[string]any{"viewer": map[string]any{"id": userID}}},
			"IssueTeam": map[string]any{"data": map[string]any{"issue": map[string]any{"team": map[string]any{"id": teamID}}}},
			"Issue":     map[string]any{"data": map[string]any{"issue": gqlIssue("Fetched")}},
			"IssueCreate": map[string]any{"data": map[string]any{"issueCreate": map[string]any{
				"success": true, "issue": gqlIssue("Created"),
			}}},
			"IssueUpdate": map[string]any{"data": map[string]any{"issueUpdate": map[string]any{
				"success": true, "issue": gqlIssue("Updated"),
			}}},
		}}
		srv = httptest.NewServer(api)
		DeferCleanup(srv.Close)
	})

	JustBeforeEach(func() {
		cfg := config.DefaultConfig().Linear.GraphQL
		cfg.BaseURL = srv.URL
		cfg.Retry.InitialInterval = time.Millisecond
		cfg.RateLimit.RequestsPerSecond = 0
		doer := httpclient.New(&cfg, "linear-graphql", mcptesting.DiscardLogger())
		gql = linear.NewGraphQL(doer, apiKey, mcptesting.DiscardLogger())
	})

	It("should fetch an issue with the raw personal key", func() {
		issue, err := gql.Issue(ctx, "ENG-7")
		Expect(err).NotTo(HaveOccurred())
		Expect(issue.Title).To(Equal("Fetched"))
		Expect(issue.Status).To(Equal("Todo"))

		req := api.last("Issue")
		Expect(req.Auth).To(Equal(apiKey))
		Expect(req.Variables).To(HaveKeyWithValue("id", "ENG-7"))
	})

	It("should resolve team, state, labels and me before creating", func() {
		priority := 1
		issue, err := gql.CreateIssue(ctx, linear.CreateIssueParams{
			Title: "Created", Team: "eng", State: "in progress", Assignee: "me",
			Labels: []string{"Bug"}, Priority: &priority,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(issue.Title).To(Equal("Created"))
		Expect(api.operations()).To(Equal([]string{"Teams", "TeamStates", "Viewer", "IssueCreate"}))

		input := api.last("IssueCreate").Variables["input"]
		Expect(input).To(And(
			HaveKeyWithValue("teamId", teamID),
			HaveKeyWithValue("stateId", stateID),
			HaveKeyWithValue("assigneeId", userID),
			HaveKeyWithValue("labelIds", []any{"l1"}),
			HaveKeyWithValue("priority", BeNumerically("==", 1)),
		))
	})

	It("should skip the team lookup for ids", func() {
		_, err := gql.CreateIssue(ctx, linear.CreateIssueParams{Title: "Created", Team: teamID})
		Expect(err).NotTo(HaveOccurred())
		Expect(api.operations()).To(Equal([]string{"IssueCreate"}))
	})

	It("should resolve the issue's team for state changes on update", func() {
		issue, err := gql.UpdateIssue(ctx, linear.UpdateIssueParams{ID: "ENG-7", State: "In Progress"})
		Expect(err).NotTo(HaveOccurred())
		Expect(issue.Title).To(Equal("Updated"))
		Expect(api.operations()).To(Equal([]string{"IssueTeam", "TeamStates", "IssueUpdate"}))
		Expect(api.last("IssueUpdate").Variables).To(HaveKeyWithValue("id", "ENG-7"))
	})

	It("should report unknown state names with the available ones", func() {
		_, err := gql.UpdateIssue(ctx, linear.UpdateIssueParams{ID: "ENG-7", State: "Shipped"})
		Expect(err).To(MatchError(And(ContainSubstring(`"Shipped" not found`), ContainSubstring("Backlog"))))
	})

	It("should refuse empty updates", func() {
		_, err := gql.UpdateIssue(ctx, linear.UpdateIssueParams{ID: "ENG-7"})
		Expect(err).To(MatchError(ContainSubstring("nothing to update")))
	})

	It("should turn errors arrays into GraphQLError", func() {
		delete(api.responses, "Issue")
		_, err := gql.Issue(ctx, "ENG-7")
		Expect(linear.IsGraphQLError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("unknown operation Issue"))
	})

	It("should fail on success=false", func() {
		api.responses["IssueCreate"] = map[string]any{"data": map[string]any{"issueCreate": map[string]any{"success": false}}}
		_, err := gql.CreateIssue(ctx, linear.CreateIssueParams{Title: "x", Team: teamID})
		Expect(linear.IsGraphQLError(err)).To(BeTrue())
	})

	Context("without an API key", func() {
		BeforeEach(func() { apiKey = "" })

		It("should fail fast", func() {
			_, err := gql.Issue(ctx, "ENG-7")
			Expect(err).To(MatchError(linear.ErrNoAPIKey))
			Expect(api.operations()).To(BeEmpty())
		})
	})
})

var _ = DescribeTable("AuthorizationHeader",
	func(key, want string) {
		Expect(linear.AuthorizationHeader(key)).To(Equal(want))
	},
	Entry("personal key", "lin_api_abc", "lin_api_abc"),
	Entry("oauth token", "lin_oauth_abc", "Bearer lin_oauth_abc"),
	Entry("already bearer", "Bearer x", "Bearer x"),
	Entry("empty", "", ""),
)
