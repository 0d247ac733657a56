package linear_test

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	linearplugin "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/linear"
	lin "github.com/jimmyghelani-usm/mcp-bridge/internal/tools/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

type stubFallback struct {
	err   error
	calls int
}

func (s *stubFallback) Issue(_ context.Context, id string) (*lin.Issue, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &lin.Issue{ID: "gql", Identifier: id}, nil
}

func (s *stubFallback) CreateIssue(_ context.Context, p lin.CreateIssueParams) (*lin.Issue, error) {
	s.calls++
	return nil, s.err
}

func (s *stubFallback) UpdateIssue(_ context.Context, p lin.UpdateIssueParams) (*lin.Issue, error) {
	s.calls++
	return nil, s.err
}

var _ = Describe("LinearServerPlugin", func() {
	var (
		ctx      context.Context
		caller   *mcptesting.MockCaller
		fallback *stubFallback
		tools    []domain.Tool
	)

	BeforeEach(func() {
		ctx = context.Background()
		caller = mcptesting.NewMockCaller()
		fallback = &stubFallback{}
		plugin := linearplugin.NewLinearServerPlugin(lin.New(caller, fallback, mcptesting.DiscardLogger()), mcptesting.DiscardLogger())
		Expect(plugin.UpstreamServer()).To(Equal(toolserver.Linear))
		var err error
		tools, err = plugin.GetTools(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	invoke := func(name string, args map[string]any) (*mcp.CallToolResult, mcptesting.Envelope) {
		result, err := mcptesting.InvokeTool(ctx, tools, name, args)
		Expect(err).NotTo(HaveOccurred())
		env, err := mcptesting.ParseEnvelope(result)
		Expect(err).NotTo(HaveOccurred())
		return result, env
	}

	It("exposes every Linear tool", func() {
		Expect(tools).To(HaveLen(19))
		Expect(mcptesting.ToolNames(tools)).To(ContainElements(
			"linear_list_issues", "linear_create_issue", "linear_search_documentation"))
	})

	It("marks creates and updates as writes", func() {
		for _, t := range tools {
			switch t.Name {
			case "linear_create_issue", "linear_update_issue", "linear_create_comment", "linear_create_project":
				Expect(t.Access).To(Equal(domain.AccessWrite), t.Name)
			default:
				Expect(t.Access).To(Equal(domain.AccessRead), t.Name)
			}
		}
	})

	It("counts listed issues", func() {
		caller.Reply(toolserver.Linear, lin.ToolListIssues, mcptesting.JSONResult(map[string]any{
			"issues": []any{
				map[string]any{"id": "1", "identifier": "ENG-1", "title": "One"},
				map[string]any{"id": "2", "identifier": "ENG-2", "title": "Two"},
			},
		}))

		_, env := invoke("linear_list_issues", map[string]any{"team": "ENG", "limit": 10})
		Expect(env.Status).To(Equal("ok"))
		Expect(env.Message).To(Equal("Found 2 issues"))

		var issues []lin.Issue
		Expect(env.DecodeData(&issues)).To(Succeed())
		Expect(issues[1].Identifier).To(Equal("ENG-2"))
		Expect(caller.LastCall().Args).To(HaveKeyWithValue("team", "ENG"))
	})

	It("validates required fields before calling Linear", func() {
		result, env := invoke("linear_create_issue", map[string]any{"title": "Only a title"})
		Expect(result.IsError).To(BeTrue())
		Expect(env.Code).To(Equal("invalid_params"))
		Expect(caller.Calls()).To(BeEmpty())
	})

	It("names the fetched issue", func() {
		caller.Reply(toolserver.Linear, lin.ToolGetIssue, mcptesting.JSONResult(map[string]any{
			"id": "9d6c", "identifier": "ENG-42", "title": "Fix hero spacing",
		}))

		_, env := invoke("linear_get_issue", map[string]any{"id": "ENG-42"})
		Expect(env.Message).To(Equal("Fetched issue ENG-42"))
	})

	It("falls back to GraphQL when the server is unreachable", func() {
		caller.Fail(toolserver.Linear, lin.ToolGetIssue, errors.New("Connection closed"))

		_, env := invoke("linear_get_issue", map[string]any{"id": "ENG-7"})
		Expect(env.Status).To(Equal("ok"))
		Expect(fallback.calls).To(Equal(1))
	})

	It("reports a missing API key when the fallback cannot run", func() {
		fallback.err = lin.ErrNoAPIKey
		caller.Fail(toolserver.Linear, lin.ToolCreateIssue, errors.New("Connection closed"))

		result, env := invoke("linear_create_issue", map[string]any{"title": "T", "team": "ENG"})
		Expect(result.IsError).To(BeTrue())
		Expect(env.Code).To(Equal("linear_api_key_missing"))
	})

	It("surfaces upstream tool errors", func() {
		caller.Reply(toolserver.Linear, lin.ToolGetTeam, mcptesting.ErrorResult("Team not found"))

		_, env := invoke("linear_get_team", map[string]any{"query": "XYZ"})
		Expect(env.Code).To(Equal("upstream_tool_error"))
	})
})
