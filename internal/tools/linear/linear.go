// Package linear wraps the Linear MCP server. The issue operations can fall
// back to the Linear GraphQL API when the MCP transport fails.
package linear

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

const (
	ToolListIssues          = "list_issues"
	ToolGetIssue            = "get_issue"
	ToolCreateIssue         = "create_issue"
	ToolUpdateIssue         = "update_issue"
	ToolListComments        = "list_comments"
	ToolCreateComment       = "create_comment"
	ToolListTeams           = "list_teams"
	ToolGetTeam             = "get_team"
	ToolListProjects        = "list_projects"
	ToolGetProject          = "get_project"
	ToolCreateProject       = "create_project"
	ToolListIssueStatuses   = "list_issue_statuses"
	ToolListIssueLabels     = "list_issue_labels"
	ToolListUsers           = "list_users"
	ToolGetUser             = "get_user"
	ToolListCycles          = "list_cycles"
	ToolListDocuments       = "list_documents"
	ToolGetDocument         = "get_document"
	ToolSearchDocumentation = "search_documentation"
)

type ListIssuesParams struct {
	Query           string `json:"query,omitempty"`
	Team            string `json:"team,omitempty"`
	Assignee        string `json:"assignee,omitempty"`
	State           string `json:"state,omitempty"`
	Label           string `json:"label,omitempty"`
	Project         string `json:"project,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	OrderBy         string `json:"orderBy,omitempty"`
	IncludeArchived bool   `json:"includeArchived,omitempty"`
}

// CreateIssueParams names the team, state, assignee, labels and project by
// key, name or id; the server resolves them.
type CreateIssueParams struct {
	Title       string   `json:"title"`
	Team        string   `json:"team"`
	Description string   `json:"description,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	State       string   `json:"state,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Project     string   `json:"project,omitempty"`
	ParentID    string   `json:"parentId,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
}

type UpdateIssueParams struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	State       string   `json:"state,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Project     string   `json:"project,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
}

type ListCommentsParams struct {
	IssueID string `json:"issueId"`
}

type CreateCommentParams struct {
	IssueID  string `json:"issueId"`
	Body     string `json:"body"`
	ParentID string `json:"parentId,omitempty"`
}

// QueryParams is shared by the list tools that take a free-text filter.
type QueryParams struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type ListProjectsParams struct {
	Team  string `json:"team,omitempty"`
	Query string `json:"query,omitempty"`
	State string `json:"state,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type CreateProjectParams struct {
	Name        string `json:"name"`
	Team        string `json:"team"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Lead        string `json:"lead,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	TargetDate  string `json:"targetDate,omitempty"`
}

type ListIssueLabelsParams struct {
	Team string `json:"team,omitempty"`
	Name string `json:"name,omitempty"`
}

type ListUsersParams struct {
	Query string `json:"query,omitempty"`
	Team  string `json:"team,omitempty"`
}

type ListCyclesParams struct {
	TeamID string `json:"teamId"`
	Type   string `json:"type,omitempty"`
}

type ListDocumentsParams struct {
	Query     string `json:"query,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type SearchDocumentationParams struct {
	Query string `json:"query"`
	Page  int    `json:"page,omitempty"`
}

// Client calls the Linear MCP server.
type Client struct {
	caller   mcpclient.Caller
	server   string
	fallback Fallback
	logger   *slog.Logger
}

// New returns a Client. fallback may be nil, which disables the GraphQL retry.
func New(caller mcpclient.Caller, fallback Fallback, logger *slog.Logger) *Client {
	return &Client{caller: caller, server: toolserver.Linear, fallback: fallback, logger: logger}
}

// HasFallback reports whether the GraphQL retry is configured.
func (c *Client) HasFallback() bool {
	return c.fallback != nil
}

func (c *Client) ListIssues(ctx context.Context, params ListIssuesParams) ([]Issue, error) {
	return listCall[Issue](ctx, c, ToolListIssues, params, "issues", "nodes")
}

// GetIssue fetches an issue by id or identifier.
func (c *Client) GetIssue(ctx context.Context, id string) (*Issue, error) {
	issue, err := mcpclient.Call[Issue](ctx, c.caller, c.server, ToolGetIssue, map[string]any{"id": id})
	if err == nil {
		return &issue, nil
	}
	if !c.shouldFallback(err) {
		return nil, err
	}
	c.logFallback(ToolGetIssue, err)
	return c.fallback.Issue(ctx, id)
}

func (c *Client) CreateIssue(ctx context.Context, params CreateIssueParams) (*Issue, error) {
	issue, err := mcpclient.Call[Issue](ctx, c.caller, c.server, ToolCreateIssue, params)
	if err == nil {
		return &issue, nil
	}
	if !c.shouldFallback(err) {
		return nil, err
	}
	c.logFallback(ToolCreateIssue, err)
	return c.fallback.CreateIssue(ctx, params)
}

func (c *Client) UpdateIssue(ctx context.Context, params UpdateIssueParams) (*Issue, error) {
	issue, err := mcpclient.Call[Issue](ctx, c.caller, c.server, ToolUpdateIssue, params)
	if err == nil {
		return &issue, nil
	}
	if !c.shouldFallback(err) {
		return nil, err
	}
	c.logFallback(ToolUpdateIssue, err)
	return c.fallback.UpdateIssue(ctx, params)
}

func (c *Client) ListComments(ctx context.Context, params ListCommentsParams) ([]Comment, error) {
	return listCall[Comment](ctx, c, ToolListComments, params, "comments", "nodes")
}

func (c *Client) CreateComment(ctx context.Context, params CreateCommentParams) (*Comment, error) {
	if params.IssueID == "" || params.Body == "" {
		return nil, fmt.Errorf("issueId and body are required to create a comment")
	}
	comment, err := mcpclient.Call[Comment](ctx, c.caller, c.server, ToolCreateComment, params)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) ListTeams(ctx context.Context, params QueryParams) ([]Team, error) {
	return listCall[Team](ctx, c, ToolListTeams, params, "teams", "nodes")
}

// GetTeam looks a team up by id, key or name.
func (c *Client) GetTeam(ctx context.Context, query string) (*Team, error) {
	return getCall[Team](ctx, c, ToolGetTeam, map[string]any{"query": query})
}

func (c *Client) ListProjects(ctx context.Context, params ListProjectsParams) ([]Project, error) {
	return listCall[Project](ctx, c, ToolListProjects, params, "projects", "nodes")
}

func (c *Client) GetProject(ctx context.Context, query string) (*Project, error) {
	return getCall[Project](ctx, c, ToolGetProject, map[string]any{"query": query})
}

func (c *Client) CreateProject(ctx context.Context, params CreateProjectParams) (*Project, error) {
	if params.Name == "" || params.Team == "" {
		return nil, fmt.Errorf("name and team are required to create a project")
	}
	return getCall[Project](ctx, c, ToolCreateProject, params)
}

// ListIssueStatuses lists the workflow states of a team.
func (c *Client) ListIssueStatuses(ctx context.Context, team string) ([]IssueStatus, error) {
	return listCall[IssueStatus](ctx, c, ToolListIssueStatuses, map[string]any{"team": team}, "statuses", "states", "nodes")
}

func (c *Client) ListIssueLabels(ctx context.Context, params ListIssueLabelsParams) ([]IssueLabel, error) {
	return listCall[IssueLabel](ctx, c, ToolListIssueLabels, params, "labels", "nodes")
}

func (c *Client) ListUsers(ctx context.Context, params ListUsersParams) ([]User, error) {
	return listCall[User](ctx, c, ToolListUsers, params, "users", "nodes")
}

// GetUser looks a user up by id, name, email or "me".
func (c *Client) GetUser(ctx context.Context, query string) (*User, error) {
	return getCall[User](ctx, c, ToolGetUser, map[string]any{"query": query})
}

func (c *Client) ListCycles(ctx context.Context, params ListCyclesParams) ([]Cycle, error) {
	return listCall[Cycle](ctx, c, ToolListCycles, params, "cycles", "nodes")
}

func (c *Client) ListDocuments(ctx context.Context, params ListDocumentsParams) ([]Document, error) {
	return listCall[Document](ctx, c, ToolListDocuments, params, "documents", "nodes")
}

func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	return getCall[Document](ctx, c, ToolGetDocument, map[string]any{"id": id})
}

// SearchDocumentation searches Linear's product documentation and returns the
// unwrapped reply.
func (c *Client) SearchDocumentation(ctx context.Context, params SearchDocumentationParams) (any, error) {
	res, err := c.caller.CallTool(ctx, c.server, ToolSearchDocumentation, params)
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

func (c *Client) shouldFallback(err error) bool {
	return c.fallback != nil && c.caller.IsTransportFailure(err)
}

func (c *Client) logFallback(tool string, err error) {
	c.logger.Warn("Linear MCP call failed in transit, retrying through GraphQL",
		"tool", tool,
		"error", err)
}

func listCall[T any](ctx context.Context, c *Client, tool string, params any, keys ...string) ([]T, error) {
	res, err := c.caller.CallTool(ctx, c.server, tool, params)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[T](res.Text(), keys...)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", c.server, tool, err)
	}
	return items, nil
}

func getCall[T any](ctx context.Context, c *Client, tool string, params any) (*T, error) {
	v, err := mcpclient.Call[T](ctx, c.caller, c.server, tool, params)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
