package linear

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Issue is the common view of an issue. It decodes both the flattened shape
// returned by the Linear MCP server and the nested GraphQL shape.
type Issue struct {
	ID          string   `json:"id"`
	Identifier  string   `json:"identifier"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Priority    int      `json:"priority"`
	Status      string   `json:"status,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Team        string   `json:"team,omitempty"`
	Project     string   `json:"project,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

func (i *Issue) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid issue JSON")
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return fmt.Errorf("issue must be a JSON object, got %s", r.Type)
	}

	*i = Issue{
		ID:          r.Get("id").String(),
		Identifier:  r.Get("identifier").String(),
		Title:       r.Get("title").String(),
		Description: r.Get("description").String(),
		URL:         r.Get("url").String(),
		Priority:    int(first(r, "priority.value", "priority").Int()),
		Status:      first(r, "state.name", "status", "state").String(),
		Assignee:    first(r, "assignee.name", "assignee.displayName", "assignee").String(),
		Team:        first(r, "team.key", "team.name", "team").String(),
		Project:     first(r, "project.name", "project").String(),
		CreatedAt:   r.Get("createdAt").String(),
		UpdatedAt:   r.Get("updatedAt").String(),
	}
	for _, l := range first(r, "labels.nodes", "labels").Array() {
		name := l.String()
		if l.IsObject() {
			name = l.Get("name").String()
		}
		if name != "" {
			i.Labels = append(i.Labels, name)
		}
	}
	return nil
}

// first returns the first path that holds a scalar or array value.
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		v := r.Get(p)
		if v.Exists() && v.Type != gjson.Null && !v.IsObject() {
			return v
		}
	}
	return gjson.Result{}
}

type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	IsMe        bool   `json:"isMe,omitempty"`
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	URL         string `json:"url,omitempty"`
}

type Comment struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	Author    string `json:"author,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type IssueStatus struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type IssueLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Cycle struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Name     string `json:"name,omitempty"`
	StartsAt string `json:"startsAt,omitempty"`
	EndsAt   string `json:"endsAt,omitempty"`
}

type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// decodeList accepts either a bare JSON array or an object wrapping the array
// under one of keys (or under its only array-valued field).
func decodeList[T any](text string, keys ...string) ([]T, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("reply is not JSON")
	}
	r := gjson.Parse(text)

	arr := r
	if r.IsObject() {
		arr = gjson.Result{}
		for _, k := range keys {
			if v := r.Get(k); v.IsArray() {
				arr = v
				break
			}
		}
		if !arr.Exists() {
			r.ForEach(func(_, v gjson.Result) bool {
				if v.IsArray() {
					arr = v
					return false
				}
				return true
			})
		}
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("reply does not contain a list")
	}

	out := make([]T, 0, len(arr.Array()))
	if err := json.Unmarshal([]byte(arr.Raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
