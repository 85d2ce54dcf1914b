package model

const (
	SourceVector = "vector"
	SourceGraph  = "graph"
)

type RetrievedFact struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Kind  string   `json:"type"`
	City  string   `json:"city,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	Text  string   `json:"text"`
	Score float64  `json:"score"`
}

type RetrievedRelation struct {
	ID         string  `json:"id"`
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	Relation   string  `json:"relation"`
	TargetID   string  `json:"target_id"`
	TargetName string  `json:"target_name"`
	Text       string  `json:"text"`
	Strength   float64 `json:"strength"`
	Depth      int     `json:"depth"`
}

type ContextItem struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Label  string  `json:"label"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

type MergedContext struct {
	Items     []ContextItem `json:"items"`
	Chars     int           `json:"chars"`
	Truncated bool          `json:"truncated"`
}

func (m MergedContext) Empty() bool {
	return len(m.Items) == 0
}

type SourceCounts struct {
	VectorResults int `json:"vector_results"`
	GraphResults  int `json:"graph_results"`
}
