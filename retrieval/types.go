package retrieval

import "fmt"

// Mode names one of the retrieval strategies. Automatic is resolved to a
// concrete mode once per call, before any strategy runs.
type Mode string

const (
	ModeNodeName  Mode = "node_name"
	ModeSummary   Mode = "summary"
	ModeContent   Mode = "content"
	ModeAutomatic Mode = "automatic"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeNodeName, ModeSummary, ModeContent, ModeAutomatic:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unknown retrieval mode: %q", value)
	}
}

// NodeRef is the minimal node identity attached to result metadata.
type NodeRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Metadata carries provenance and enrichment for a result. Degraded is set
// when embedding-based strategies were unavailable for the query, so the
// caller knows the ranking came from keyword matching alone.
type Metadata struct {
	Parent       *NodeRef  `json:"parent,omitempty"`
	Children     []NodeRef `json:"children,omitempty"`
	RelatedCount int       `json:"related_count,omitempty"`
	Contributors []string  `json:"contributors,omitempty"`
	Degraded     bool      `json:"degraded,omitempty"`
}

// Result is the unit returned to callers. Text holds the section summary or
// chunk content depending on the mode that produced the result; Score
// semantics likewise follow the producing mode.
type Result struct {
	NodeID   string   `json:"node_id"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
	Mode     Mode     `json:"retrieval_mode"`
	Metadata Metadata `json:"metadata"`
}

// Context is the parent/children neighborhood of a single node, served by
// NodeContext for prompt assembly downstream.
type Context struct {
	Node     NodeRef   `json:"node"`
	Summary  string    `json:"summary,omitempty"`
	Parent   *NodeRef  `json:"parent,omitempty"`
	Children []NodeRef `json:"children,omitempty"`
}
