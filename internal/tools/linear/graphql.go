package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/httpclient"
)

// maxResponseSize bounds a GraphQL response body.
const maxResponseSize = 10 << 20

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Operation string
	Messages  []string
	Codes     []string
}

func (e *GraphQLError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("linear graphql %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// IsGraphQLError returns true when err is (or wraps) a GraphQLError.
func IsGraphQLError(err error) bool {
	var ge *GraphQLError
	return errors.As(err, &ge)
}

// ErrNoAPIKey is returned when the GraphQL fallback is used without a key.
var ErrNoAPIKey = errors.New("linear API key is not configured")

// Doer is the transport GraphQL needs; *httpclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
	BaseURL() string
}

// Fallback is the alternate path for the issue operations.
type Fallback interface {
	Issue(ctx context.Context, id string) (*Issue, error)
	CreateIssue(ctx context.Context, params CreateIssueParams) (*Issue, error)
	UpdateIssue(ctx context.Context, params UpdateIssueParams) (*Issue, error)
}

// GraphQL talks to the Linear API directly with static queries.
type GraphQL struct {
	http   Doer
	apiKey string
	logger *slog.Logger
}

// NewGraphQL returns a GraphQL client over doer.
func NewGraphQL(doer Doer, apiKey string, logger *slog.Logger) *GraphQL {
	return &GraphQL{http: doer, apiKey: apiKey, logger: logger}
}

// AuthorizationHeader formats apiKey for the Authorization header. Personal
// API keys are sent as-is; OAuth tokens use the Bearer scheme.
func AuthorizationHeader(apiKey string) string {
	if apiKey == "" || strings.HasPrefix(apiKey, "lin_api_") || strings.HasPrefix(apiKey, "Bearer ") {
		return apiKey
	}
	return "Bearer " + apiKey
}

// Issue fetches one issue by id or identifier (e.g. ENG-123).
func (g *GraphQL) Issue(ctx context.Context, id string) (*Issue, error) {
	if id == "" {
		return nil, fmt.Errorf("issue id is required")
	}
	data, err := g.do(ctx, "Issue", issueQuery, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return decodeIssue(data.Get("issue"), "Issue")
}

// CreateIssue creates an issue, resolving team, state, assignee, labels and
// project names to ids first.
func (g *GraphQL) CreateIssue(ctx context.Context, params CreateIssueParams) (*Issue, error) {
	if params.Title == "" || params.Team == "" {
		return nil, fmt.Errorf("title and team are required to create an issue")
	}

	team, err := g.resolveTeam(ctx, params.Team)
	if err != nil {
		return nil, err
	}

	input := map[string]any{
		"title":  params.Title,
		"teamId": team.ID,
	}
	if params.Description != "" {
		input["description"] = params.Description
	}
	if params.Priority != nil {
		input["priority"] = *params.Priority
	}
	if params.DueDate != "" {
		input["dueDate"] = params.DueDate
	}
	if params.ParentID != "" {
		input["parentId"] = params.ParentID
	}
	if err := g.resolveCommon(ctx, team.ID, input, params.State, params.Assignee, params.Labels, params.Project); err != nil {
		return nil, err
	}

	data, err := g.do(httpclient.WithoutRetry(ctx), "IssueCreate", createIssueMutation, map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	return decodeMutation(data.Get("issueCreate"), "IssueCreate")
}

// UpdateIssue updates the fields that are set in params.
func (g *GraphQL) UpdateIssue(ctx context.Context, params UpdateIssueParams) (*Issue, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("issue id is required")
	}

	input := map[string]any{}
	if params.Title != "" {
		input["title"] = params.Title
	}
	if params.Description != "" {
		input["description"] = params.Description
	}
	if params.Priority != nil {
		input["priority"] = *params.Priority
	}
	if params.DueDate != "" {
		input["dueDate"] = params.DueDate
	}

	if params.State != "" || len(params.Labels) > 0 || params.Assignee != "" || params.Project != "" {
		teamID := ""
		if params.State != "" || len(params.Labels) > 0 {
			team, err := g.issueTeam(ctx, params.ID)
			if err != nil {
				return nil, err
			}
			teamID = team.ID
		}
		if err := g.resolveCommon(ctx, teamID, input, params.State, params.Assignee, params.Labels, params.Project); err != nil {
			return nil, err
		}
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("nothing to update on issue %s", params.ID)
	}

	data, err := g.do(httpclient.WithoutRetry(ctx), "IssueUpdate", updateIssueMutation, map[string]any{"id": params.ID, "input": input})
	if err != nil {
		return nil, err
	}
	return decodeMutation(data.Get("issueUpdate"), "IssueUpdate")
}

func (g *GraphQL) resolveCommon(ctx context.Context, teamID string, input map[string]any, state, assignee string, labels []string, project string) error {
	if state != "" || len(labels) > 0 {
		data, err := g.do(ctx, "TeamStates", teamStatesQuery, map[string]any{"id": teamID})
		if err != nil {
			return err
		}
		if state != "" {
			id, err := matchName(data.Get("team.states.nodes"), state, "state")
			if err != nil {
				return err
			}
			input["stateId"] = id
		}
		if len(labels) > 0 {
			ids := make([]string, 0, len(labels))
			for _, l := range labels {
				id, err := matchName(data.Get("team.labels.nodes"), l, "label")
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			input["labelIds"] = ids
		}
	}

	if assignee != "" {
		id, err := g.resolveUser(ctx, assignee)
		if err != nil {
			return err
		}
		input["assigneeId"] = id
	}

	if project != "" {
		id := project
		if !isUUID(project) {
			data, err := g.do(ctx, "Projects", projectsQuery, map[string]any{"term": project})
			if err != nil {
				return err
			}
			id = data.Get("projects.nodes.0.id").String()
			if id == "" {
				return fmt.Errorf("linear project %q not found", project)
			}
		}
		input["projectId"] = id
	}
	return nil
}

func (g *GraphQL) resolveTeam(ctx context.Context, term string) (Team, error) {
	if isUUID(term) {
		return Team{ID: term}, nil
	}
	data, err := g.do(ctx, "Teams", teamsQuery, map[string]any{"term": term})
	if err != nil {
		return Team{}, err
	}
	node := data.Get("teams.nodes.0")
	if !node.Exists() {
		return Team{}, fmt.Errorf("linear team %q not found", term)
	}
	return Team{ID: node.Get("id").String(), Key: node.Get("key").String(), Name: node.Get("name").String()}, nil
}

func (g *GraphQL) issueTeam(ctx context.Context, issueID string) (Team, error) {
	data, err := g.do(ctx, "IssueTeam", issueTeamQuery, map[string]any{"id": issueID})
	if err != nil {
		return Team{}, err
	}
	node := data.Get("issue.team")
	if !node.Exists() {
		return Team{}, fmt.Errorf("linear issue %q not found", issueID)
	}
	return Team{ID: node.Get("id").String(), Key: node.Get("key").String(), Name: node.Get("name").String()}, nil
}

// resolveUser maps "me", an email or a name to a user id.
func (g *GraphQL) resolveUser(ctx context.Context, term string) (string, error) {
	if isUUID(term) {
		return term, nil
	}
	if strings.EqualFold(term, "me") {
		data, err := g.do(ctx, "Viewer", viewerQuery, nil)
		if err != nil {
			return "", err
		}
		return data.Get("viewer.id").String(), nil
	}
	data, err := g.do(ctx, "Users", usersQuery, map[string]any{"term": term})
	if err != nil {
		return "", err
	}
	id := data.Get("users.nodes.0.id").String()
	if id == "" {
		return "", fmt.Errorf("linear user %q not found", term)
	}
	return id, nil
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// do posts one operation and returns its data field.
func (g *GraphQL) do(ctx context.Context, operation, query string, variables map[string]any) (gjson.Result, error) {
	if g.apiKey == "" {
		return gjson.Result{}, ErrNoAPIKey
	}

	body, err := json.Marshal(graphQLRequest{Query: query, OperationName: operation, Variables: variables})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.http.BaseURL(), bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", AuthorizationHeader(g.apiKey))

	ctx = httpclient.WithRequestID(ctx, uuid.NewString())
	g.logger.Debug("Linear GraphQL request", "operation", operation)

	resp, err := g.http.Do(ctx, req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return gjson.Result{}, fmt.Errorf("linear graphql %s: %w", operation, err)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read %s response: %w", operation, err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("linear graphql %s: HTTP %d with non-JSON body", operation, resp.StatusCode)
	}

	parsed := gjson.ParseBytes(raw)
	if errs := parsed.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		ge := &GraphQLError{Operation: operation}
		for _, e := range errs.Array() {
			ge.Messages = append(ge.Messages, e.Get("message").String())
			if code := e.Get("extensions.code").String(); code != "" {
				ge.Codes = append(ge.Codes, code)
			}
		}
		return gjson.Result{}, ge
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return gjson.Result{}, fmt.Errorf("linear graphql %s: HTTP %d", operation, resp.StatusCode)
	}
	return parsed.Get("data"), nil
}

func decodeIssue(node gjson.Result, operation string) (*Issue, error) {
	if !node.Exists() || node.Type == gjson.Null {
		return nil, fmt.Errorf("linear graphql %s: issue not found", operation)
	}
	var issue Issue
	if err := issue.UnmarshalJSON([]byte(node.Raw)); err != nil {
		return nil, err
	}
	return &issue, nil
}

func decodeMutation(payload gjson.Result, operation string) (*Issue, error) {
	if !payload.Get("success").Bool() {
		return nil, &GraphQLError{Operation: operation, Messages: []string{"mutation reported success=false"}}
	}
	return decodeIssue(payload.Get("issue"), operation)
}

func matchName(nodes gjson.Result, name, kind string) (string, error) {
	var available []string
	for _, n := range nodes.Array() {
		if strings.EqualFold(n.Get("name").String(), name) || n.Get("id").String() == name {
			return n.Get("id").String(), nil
		}
		available = append(available, n.Get("name").String())
	}
	return "", fmt.Errorf("linear %s %q not found (available: %s)", kind, name, strings.Join(available, ", "))
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
