package linear_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

type fakeFallback struct {
	issues  int
	creates []linear.CreateIssueParams
	updates []linear.UpdateIssueParams
}

func (f *fakeFallback) Issue(_ context.Context, id string) (*linear.Issue, error) {
	f.issues++
	return &linear.Issue{ID: "gql", Identifier: id}, nil
}

func (f *fakeFallback) CreateIssue(_ context.Context, p linear.CreateIssueParams) (*linear.Issue, error) {
	f.creates = append(f.creates, p)
	return &linear.Issue{ID: "gql", Title: p.Title}, nil
}

func (f *fakeFallback) UpdateIssue(_ context.Context, p linear.UpdateIssueParams) (*linear.Issue, error) {
	f.updates = append(f.updates, p)
	return &linear.Issue{ID: p.ID, Title: p.Title}, nil
}

var mcpIssue = map[string]any{
	"id":         "9d6c",
	"identifier": "ENG-42",
	"title":      "Fix hero spacing",
	"priority":   map[string]any{"value": 2, "name": "High"},
	"status":     "In Progress",
	"assignee":   "Ada",
	"team":       "Engineering",
	"labels":     []string{"frontend", "bug"},
}

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		caller   *mcptesting.MockCaller
		fallback *fakeFallback
		client   *linear.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		caller = mcptesting.NewMockCaller()
		fallback = &fakeFallback{}
		client = linear.New(caller, fallback, mcptesting.DiscardLogger())
	})

	Describe("GetIssue", func() {
		It("should decode the MCP reply", func() {
			caller.Reply(toolserver.Linear, linear.ToolGetIssue, mcptesting.JSONResult(mcpIssue))

			issue, err := client.GetIssue(ctx, "ENG-42")
			Expect(err).NotTo(HaveOccurred())
			Expect(issue.Identifier).To(Equal("ENG-42"))
			Expect(issue.Priority).To(Equal(2))
			Expect(issue.Status).To(Equal("In Progress"))
			Expect(issue.Labels).To(Equal([]string{"frontend", "bug"}))
			Expect(caller.LastCall().Args).To(Equal(map[string]any{"id": "ENG-42"}))
			Expect(fallback.issues).To(BeZero())
		})

		DescribeTable("should retry once through GraphQL on transport failures",
			func(cause error) {
				caller.Fail(toolserver.Linear, linear.ToolGetIssue, cause)

				issue, err := client.GetIssue(ctx, "ENG-42")
				Expect(err).NotTo(HaveOccurred())
				Expect(issue.ID).To(Equal("gql"))
				Expect(fallback.issues).To(Equal(1))
				Expect(caller.Calls()).To(HaveLen(1))
			},
			Entry("ETIMEDOUT", errors.New("connect ETIMEDOUT 34.1.2.3:443")),
			Entry("Connection closed", errors.New("MCP error -32000: Connection closed")),
			Entry("MCP_TIMEOUT", errors.New("MCP_TIMEOUT: request exceeded 60000ms")),
			Entry("EOF", io.EOF),
		)

		It("should not fall back on tool errors", func() {
			caller.Reply(toolserver.Linear, linear.ToolGetIssue, mcptesting.ErrorResult("Entity not found: Issue"))

			_, err := client.GetIssue(ctx, "ENG-404")
			Expect(mcpclient.IsToolError(err)).To(BeTrue())
			Expect(fallback.issues).To(BeZero())
		})

		It("should not fall back on other errors", func() {
			caller.Fail(toolserver.Linear, linear.ToolGetIssue, errors.New("invalid arguments"))
			_, err := client.GetIssue(ctx, "ENG-1")
			Expect(err).To(HaveOccurred())
			Expect(fallback.issues).To(BeZero())
		})

		It("should propagate transport failures without a fallback", func() {
			client = linear.New(caller, nil, mcptesting.DiscardLogger())
			Expect(client.HasFallback()).To(BeFalse())
			caller.Fail(toolserver.Linear, linear.ToolGetIssue, errors.New("Connection closed"))

			_, err := client.GetIssue(ctx, "ENG-1")
			Expect(err).To(MatchError(ContainSubstring("Connection closed")))
		})
	})

	It("should fall back for CreateIssue with the same params", func() {
		caller.Fail(toolserver.Linear, linear.ToolCreateIssue, errors.New("ETIMEDOUT"))
		params := linear.CreateIssueParams{Title: "New", Team: "ENG", Assignee: "me"}

		issue, err := client.CreateIssue(ctx, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(issue.Title).To(Equal("New"))
		Expect(fallback.creates).To(Equal([]linear.CreateIssueParams{params}))
		Expect(caller.LastCall().Args).To(Equal(map[string]any{"title": "New", "team": "ENG", "assignee": "me"}))
	})

	It("should fall back for UpdateIssue", func() {
		caller.Fail(toolserver.Linear, linear.ToolUpdateIssue, errors.New("Connection closed"))
		_, err := client.UpdateIssue(ctx, linear.UpdateIssueParams{ID: "ENG-1", State: "Done"})
		Expect(err).NotTo(HaveOccurred())
		Expect(fallback.updates).To(HaveLen(1))
	})

	It("should use custom fallback markers from the caller", func() {
		caller.SetMarkers("socket hang up")
		caller.Fail(toolserver.Linear, linear.ToolGetIssue, errors.New("socket hang up"))
		_, err := client.GetIssue(ctx, "ENG-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(fallback.issues).To(Equal(1))
	})

	Describe("list operations", func() {
		It("should accept a bare array", func() {
			caller.Reply(toolserver.Linear, linear.ToolListTeams, mcptesting.JSONResult([]map[string]string{
				{"id": "t1", "key": "ENG", "name": "Engineering"},
			}))
			teams, err := client.ListTeams(ctx, linear.QueryParams{})
			Expect(err).NotTo(HaveOccurred())
			Expect(teams).To(Equal([]linear.Team{{ID: "t1", Key: "ENG", Name: "Engineering"}}))
		})

		It("should unwrap a list nested in an object", func() {
			caller.Reply(toolserver.Linear, linear.ToolListIssues, mcptesting.JSONResult(map[string]any{
				"issues":   []any{mcpIssue},
				"hasMore":  false,
				"pageInfo": map[string]any{"endCursor": "x"},
			}))
			issues, err := client.ListIssues(ctx, linear.ListIssuesParams{Assignee: "me", Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Team).To(Equal("Engineering"))
			Expect(caller.LastCall().Args).To(Equal(map[string]any{"assignee": "me", "limit": float64(10)}))
		})

		It("should find the only array field when the key is unknown", func() {
			caller.Reply(toolserver.Linear, linear.ToolListCycles, mcptesting.JSONResult(map[string]any{
				"results": []map[string]any{{"id": "c1", "number": 7}},
			}))
			cycles, err := client.ListCycles(ctx, linear.ListCyclesParams{TeamID: "t1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cycles[0].Number).To(Equal(7))
		})

		It("should reject non-list replies", func() {
			caller.Reply(toolserver.Linear, linear.ToolListUsers, mcptesting.TextResult("no users"))
			_, err := client.ListUsers(ctx, linear.ListUsersParams{})
			Expect(err).To(MatchError(ContainSubstring("not JSON")))
		})

		It("should route the remaining list tools", func() {
			caller.Reply(toolserver.Linear, linear.ToolListComments, mcptesting.JSONResult([]any{map[string]any{"id": "c", "body": "hi"}}))
			caller.Reply(toolserver.Linear, linear.ToolListProjects, mcptesting.JSONResult([]any{}))
			caller.Reply(toolserver.Linear, linear.ToolListIssueStatuses, mcptesting.JSONResult([]any{map[string]any{"id": "s", "name": "Done", "type": "completed"}}))
			caller.Reply(toolserver.Linear, linear.ToolListIssueLabels, mcptesting.JSONResult([]any{}))
			caller.Reply(toolserver.Linear, linear.ToolListDocuments, mcptesting.JSONResult([]any{}))

			comments, err := client.ListComments(ctx, linear.ListCommentsParams{IssueID: "ENG-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(comments[0].Body).To(Equal("hi"))

			_, err = client.ListProjects(ctx, linear.ListProjectsParams{Team: "ENG"})
			Expect(err).NotTo(HaveOccurred())

			statuses, err := client.ListIssueStatuses(ctx, "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses[0].Type).To(Equal("completed"))
			Expect(caller.LastCall().Args).To(Equal(map[string]any{"team": "ENG"}))

			_, err = client.ListIssueLabels(ctx, linear.ListIssueLabelsParams{})
			Expect(err).NotTo(HaveOccurred())
			_, err = client.ListDocuments(ctx, linear.ListDocumentsParams{})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("single-entity operations", func() {
		It("should decode each entity", func() {
			caller.Reply(toolserver.Linear, linear.ToolGetTeam, mcptesting.JSONResult(map[string]string{"id": "t1", "key": "ENG"}))
			caller.Reply(toolserver.Linear, linear.ToolGetUser, mcptesting.JSONResult(map[string]any{"id": "u1", "name": "Ada", "isMe": true}))
			caller.Reply(toolserver.Linear, linear.ToolGetProject, mcptesting.JSONResult(map[string]string{"id": "p1", "name": "Site"}))
			caller.Reply(toolserver.Linear, linear.ToolCreateProject, mcptesting.JSONResult(map[string]string{"id": "p2", "name": "New"}))
			caller.Reply(toolserver.Linear, linear.ToolGetDocument, mcptesting.JSONResult(map[string]string{"id": "d1", "title": "RFC"}))
			caller.Reply(toolserver.Linear, linear.ToolCreateComment, mcptesting.JSONResult(map[string]string{"id": "c1", "body": "LGTM"}))
			caller.Reply(toolserver.Linear, linear.ToolSearchDocumentation, mcptesting.TextResult("# Cycles"))

			team, err := client.GetTeam(ctx, "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(team.Key).To(Equal("ENG"))

			user, err := client.GetUser(ctx, "me")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.IsMe).To(BeTrue())

			project, err := client.GetProject(ctx, "Site")
			Expect(err).NotTo(HaveOccurred())
			Expect(project.ID).To(Equal("p1"))

			created, err := client.CreateProject(ctx, linear.CreateProjectParams{Name: "New", Team: "ENG"})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal("p2"))

			doc, err := client.GetDocument(ctx, "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Title).To(Equal("RFC"))

			comment, err := client.CreateComment(ctx, linear.CreateCommentParams{IssueID: "ENG-1", Body: "LGTM"})
			Expect(err).NotTo(HaveOccurred())
			Expect(comment.Body).To(Equal("LGTM"))

			docs, err := client.SearchDocumentation(ctx, linear.SearchDocumentationParams{Query: "cycles"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(Equal("# Cycles"))
		})

		It("should validate required fields before calling", func() {
			_, err := client.CreateComment(ctx, linear.CreateCommentParams{IssueID: "ENG-1"})
			Expect(err).To(HaveOccurred())
			_, err = client.CreateProject(ctx, linear.CreateProjectParams{Name: "x"})
			Expect(err).To(HaveOccurred())
			Expect(caller.Calls()).To(BeEmpty())
		})
	})
})

var _ = Describe("Issue", func() {
	It("should decode the nested GraphQL shape", func() {
		raw := `{"id":"9d6c","identifier":"ENG-42","title":"T","priority":1,
			"state":{"name":"Todo"},"assignee":{"name":"Ada"},"team":{"key":"ENG","name":"Engineering"},
			"project":{"name":"Site"},"labels":{"nodes":[{"name":"bug"}]}}`
		var issue linear.Issue
		Expect(json.Unmarshal([]byte(raw), &issue)).To(Succeed())
		Expect(issue).To(Equal(linear.Issue{
			ID: "9d6c", Identifier: "ENG-42", Title: "T", Priority: 1,
			Status: "Todo", Assignee: "Ada", Team: "ENG", Project: "Site", Labels: []string{"bug"},
		}))
	})

	It("should reject non-objects", func() {
		var issue linear.Issue
		Expect(json.Unmarshal([]byte(`[1]`), &issue)).NotTo(Succeed())
	})
})
