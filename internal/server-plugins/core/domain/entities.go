package domain

// UpstreamServer is one configured MCP tool server as seen by the bridge.
type UpstreamServer struct {
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Command   string `json:"command,omitempty"`
	URL       string `json:"url,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
	Connected bool   `json:"connected"`
}

// UpstreamTool is a tool advertised by an upstream server.
type UpstreamTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Access      string `json:"access"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// CallOutcome is the unwrapped reply of a forwarded tool call.
type CallOutcome struct {
	Server string     `json:"server"`
	Tool   string     `json:"tool"`
	Value  any        `json:"value"`
	Images []ImageRef `json:"-"`
}

// ImageRef carries an image block of a forwarded reply.
type ImageRef struct {
	MIMEType string
	Data     []byte
}

// LogSnapshot is the tail of the in-memory log buffer.
type LogSnapshot struct {
	Lines    []string `json:"lines"`
	Capacity int      `json:"capacity"`
	Size     int      `json:"size"`
}
