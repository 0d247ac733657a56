package linear

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	mcpserver "github.com/jimmyghelani-usm/mcp-bridge/internal/server"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	lin "github.com/jimmyghelani-usm/mcp-bridge/internal/tools/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

// LinearServerPlugin exposes the Linear tools. Issue reads and writes fall
// back to the GraphQL API when the MCP server cannot be reached.
type LinearServerPlugin struct {
	client *lin.Client
	logger *slog.Logger
}

func NewLinearServerPlugin(client *lin.Client, logger *slog.Logger) *LinearServerPlugin {
	return &LinearServerPlugin{client: client, logger: logger}
}

func (p *LinearServerPlugin) ID() string             { return "linear" }
func (p *LinearServerPlugin) Name() string           { return "Linear" }
func (p *LinearServerPlugin) Description() string    { return "Linear issues, projects, teams and documents" }
func (p *LinearServerPlugin) Version() string        { return "0.1.0" }
func (p *LinearServerPlugin) UpstreamServer() string { return toolserver.Linear }

type idArgs struct {
	ID string `json:"id"`
}

type queryArgs struct {
	Query string `json:"query"`
}

type teamArgs struct {
	Team string `json:"team"`
}

// listTool builds a tool returning a list; noun names the items in the message.
func listTool[P, T any](name, upstream, description, noun string, validate func(P) error, call func(context.Context, P) ([]T, error), opts ...mcp.ToolOption) mcpserver.ToolSpec {
	return itemTool(name, upstream, description, validate, call,
		func(items []T) string { return fmt.Sprintf("Found %d %s", len(items), noun) },
		opts...)
}

func itemTool[P, R any](name, upstream, description string, validate func(P) error, call func(context.Context, P) (R, error), message func(R) string, opts ...mcp.ToolOption) mcpserver.ToolSpec {
	return mcpserver.ToolSpec{
		Name:        name,
		Description: description,
		Upstream:    upstream,
		Options:     opts,
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var params P
			if err := mcpserver.Bind(req, &params); err != nil {
				return mcpserver.FromError(err), nil
			}
			if validate != nil {
				if err := validate(params); err != nil {
					return mcpserver.FromError(err), nil
				}
			}
			value, err := call(ctx, params)
			if err != nil {
				return mcpserver.FromError(err), nil
			}
			return mcpserver.OK(message(value), value), nil
		},
	}
}

func fixed[R any](message string) func(R) string {
	return func(R) string { return message }
}

func requireAll(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if err := mcpserver.Required(fields[i], fields[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func limitOption() mcp.ToolOption {
	return mcp.WithNumber("limit", mcp.Description("Maximum number of results"), mcp.Min(1), mcp.Max(250))
}

func (p *LinearServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	c := p.client
	return mcpserver.BuildTools(
		listTool("linear_list_issues", lin.ToolListIssues, "List issues, optionally filtered", "issues", nil, c.ListIssues,
			mcp.WithString("query", mcp.Description("Text to search in title and description")),
			mcp.WithString("team", mcp.Description("Team name, key or id")),
			mcp.WithString("assignee", mcp.Description("User name, email, id or \"me\"")),
			mcp.WithString("state", mcp.Description("Workflow state name or id")),
			mcp.WithString("label", mcp.Description("Label name or id")),
			mcp.WithString("project", mcp.Description("Project name or id")),
			mcp.WithString("orderBy", mcp.Enum("createdAt", "updatedAt")),
			mcp.WithBoolean("includeArchived"),
			limitOption()),
		itemTool("linear_get_issue", lin.ToolGetIssue, "Get an issue by id or identifier such as ENG-123",
			func(a idArgs) error { return mcpserver.Required("id", a.ID) },
			func(ctx context.Context, a idArgs) (*lin.Issue, error) { return c.GetIssue(ctx, a.ID) },
			issueMessage("Fetched"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Issue id or identifier"))),
		itemTool("linear_create_issue", lin.ToolCreateIssue, "Create an issue",
			func(a lin.CreateIssueParams) error { return requireAll("title", a.Title, "team", a.Team) },
			c.CreateIssue,
			issueMessage("Created"),
			mcp.WithString("title", mcp.Required()),
			mcp.WithString("team", mcp.Required(), mcp.Description("Team name, key or id")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithString("assignee"),
			mcp.WithString("state"),
			mcp.WithNumber("priority", mcp.Description("0 none, 1 urgent, 2 high, 3 normal, 4 low"), mcp.Min(0), mcp.Max(4)),
			mcp.WithArray("labels", mcp.WithStringItems()),
			mcp.WithString("project"),
			mcp.WithString("parentId", mcp.Description("Parent issue id for sub-issues")),
			mcp.WithString("dueDate", mcp.Description("ISO date"))),
		itemTool("linear_update_issue", lin.ToolUpdateIssue, "Update an issue",
			func(a lin.UpdateIssueParams) error { return mcpserver.Required("id", a.ID) },
			c.UpdateIssue,
			issueMessage("Updated"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Issue id or identifier")),
			mcp.WithString("title"),
			mcp.WithString("description"),
			mcp.WithString("assignee"),
			mcp.WithString("state"),
			mcp.WithNumber("priority", mcp.Min(0), mcp.Max(4)),
			mcp.WithArray("labels", mcp.WithStringItems()),
			mcp.WithString("project"),
			mcp.WithString("dueDate")),
		listTool("linear_list_comments", lin.ToolListComments, "List the comments of an issue", "comments",
			func(a lin.ListCommentsParams) error { return mcpserver.Required("issueId", a.IssueID) },
			c.ListComments,
			mcp.WithString("issueId", mcp.Required())),
		itemTool("linear_create_comment", lin.ToolCreateComment, "Comment on an issue",
			func(a lin.CreateCommentParams) error { return requireAll("issueId", a.IssueID, "body", a.Body) },
			c.CreateComment,
			fixed[*lin.Comment]("Comment created"),
			mcp.WithString("issueId", mcp.Required()),
			mcp.WithString("body", mcp.Required(), mcp.Description("Markdown body")),
			mcp.WithString("parentId", mcp.Description("Comment to reply to"))),
		listTool("linear_list_teams", lin.ToolListTeams, "List teams", "teams", nil, c.ListTeams,
			mcp.WithString("query"), limitOption()),
		itemTool("linear_get_team", lin.ToolGetTeam, "Get a team by id, key or name",
			func(a queryArgs) error { return mcpserver.Required("query", a.Query) },
			func(ctx context.Context, a queryArgs) (*lin.Team, error) { return c.GetTeam(ctx, a.Query) },
			fixed[*lin.Team]("Team fetched"),
			mcp.WithString("query", mcp.Required())),
		listTool("linear_list_projects", lin.ToolListProjects, "List projects", "projects", nil, c.ListProjects,
			mcp.WithString("team"), mcp.WithString("query"), mcp.WithString("state"), limitOption()),
		itemTool("linear_get_project", lin.ToolGetProject, "Get a project by id or name",
			func(a queryArgs) error { return mcpserver.Required("query", a.Query) },
			func(ctx context.Context, a queryArgs) (*lin.Project, error) { return c.GetProject(ctx, a.Query) },
			fixed[*lin.Project]("Project fetched"),
			mcp.WithString("query", mcp.Required())),
		itemTool("linear_create_project", lin.ToolCreateProject, "Create a project",
			func(a lin.CreateProjectParams) error { return requireAll("name", a.Name, "team", a.Team) },
			c.CreateProject,
			fixed[*lin.Project]("Project created"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("team", mcp.Required()),
			mcp.WithString("description"),
			mcp.WithString("summary"),
			mcp.WithString("lead"),
			mcp.WithString("startDate"),
			mcp.WithString("targetDate")),
		listTool("linear_list_issue_statuses", lin.ToolListIssueStatuses, "List the workflow states of a team", "statuses",
			func(a teamArgs) error { return mcpserver.Required("team", a.Team) },
			func(ctx context.Context, a teamArgs) ([]lin.IssueStatus, error) { return c.ListIssueStatuses(ctx, a.Team) },
			mcp.WithString("team", mcp.Required())),
		listTool("linear_list_issue_labels", lin.ToolListIssueLabels, "List issue labels", "labels", nil, c.ListIssueLabels,
			mcp.WithString("team"), mcp.WithString("name")),
		listTool("linear_list_users", lin.ToolListUsers, "List users", "users", nil, c.ListUsers,
			mcp.WithString("query"), mcp.WithString("team")),
		itemTool("linear_get_user", lin.ToolGetUser, "Get a user by id, name, email or \"me\"",
			func(a queryArgs) error { return mcpserver.Required("query", a.Query) },
			func(ctx context.Context, a queryArgs) (*lin.User, error) { return c.GetUser(ctx, a.Query) },
			fixed[*lin.User]("User fetched"),
			mcp.WithString("query", mcp.Required())),
		listTool("linear_list_cycles", lin.ToolListCycles, "List the cycles of a team", "cycles",
			func(a lin.ListCyclesParams) error { return mcpserver.Required("teamId", a.TeamID) },
			c.ListCycles,
			mcp.WithString("teamId", mcp.Required()),
			mcp.WithString("type", mcp.Enum("current", "previous", "next"))),
		listTool("linear_list_documents", lin.ToolListDocuments, "List documents", "documents", nil, c.ListDocuments,
			mcp.WithString("query"), mcp.WithString("projectId"), limitOption()),
		itemTool("linear_get_document", lin.ToolGetDocument, "Get a document by id or slug",
			func(a idArgs) error { return mcpserver.Required("id", a.ID) },
			func(ctx context.Context, a idArgs) (*lin.Document, error) { return c.GetDocument(ctx, a.ID) },
			fixed[*lin.Document]("Document fetched"),
			mcp.WithString("id", mcp.Required())),
		itemTool("linear_search_documentation", lin.ToolSearchDocumentation, "Search the Linear product documentation",
			func(a lin.SearchDocumentationParams) error { return mcpserver.Required("query", a.Query) },
			c.SearchDocumentation,
			fixed[any]("Documentation searched"),
			mcp.WithString("query", mcp.Required()),
			mcp.WithNumber("page", mcp.Min(0))),
	), nil
}

func issueMessage(verb string) func(*lin.Issue) string {
	return func(issue *lin.Issue) string {
		if issue == nil || issue.Identifier == "" {
			return verb + " issue"
		}
		return fmt.Sprintf("%s issue %s", verb, issue.Identifier)
	}
}
