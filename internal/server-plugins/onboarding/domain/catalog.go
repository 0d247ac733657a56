// Package domain holds the documents served by the onboarding resources.
package domain

// BridgeServer groups the tools of plugins that front no upstream server.
const BridgeServer = "bridge"

// AccessPerCall marks proxy tools whose access depends on the forwarded tool.
const AccessPerCall = "per-call"

// Catalog lists what the bridge currently exposes, with tools grouped by the
// upstream server behind them.
type Catalog struct {
	Version   string        `json:"version"`
	Servers   []ServerTools `json:"servers"`
	Resources []ResourceRef `json:"resources"`
	Prompts   []PromptRef   `json:"prompts"`
}

type ServerTools struct {
	Server string    `json:"server"`
	Tools  []ToolRef `json:"tools"`
}

type ToolRef struct {
	Name        string         `json:"name"`
	Plugin      string         `json:"plugin"`
	Description string         `json:"description"`
	Access      string         `json:"access"`
	Example     map[string]any `json:"example,omitempty"`
}

type ResourceRef struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
}

type PromptRef struct {
	Plugin      string `json:"plugin"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func NewCatalog(version string) *Catalog {
	return &Catalog{
		Version:   version,
		Servers:   make([]ServerTools, 0),
		Resources: make([]ResourceRef, 0),
		Prompts:   make([]PromptRef, 0),
	}
}

// AddTool files tool under server. Servers keep the order they were first seen in.
func (c *Catalog) AddTool(server string, tool ToolRef) {
	if server == "" {
		server = BridgeServer
	}
	for i := range c.Servers {
		if c.Servers[i].Server == server {
			c.Servers[i].Tools = append(c.Servers[i].Tools, tool)
			return
		}
	}
	c.Servers = append(c.Servers, ServerTools{Server: server, Tools: []ToolRef{tool}})
}

// Tool finds a tool by name across all servers.
func (c *Catalog) Tool(name string) (ToolRef, bool) {
	for _, s := range c.Servers {
		for _, t := range s.Tools {
			if t.Name == name {
				return t, true
			}
		}
	}
	return ToolRef{}, false
}

// Intent maps a goal, and the ways users phrase it, to the tool that serves it.
type Intent struct {
	Goal     string   `json:"goal"`
	Synonyms []string `json:"synonyms"`
	Tool     string   `json:"tool"`
	Params   []string `json:"params"`
}

// Recipe is an ordered tool sequence for one workflow.
type Recipe struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Requires []string `json:"requires"`
	Steps    []Step   `json:"steps"`
	Done     string   `json:"done"`
}

type Step struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
	Note string         `json:"note,omitempty"`
}
