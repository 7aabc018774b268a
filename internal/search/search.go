package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultScript ResultType = "script"
	ResultScene  ResultType = "scene"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	ScriptID string     `json:"scriptId"`
	SceneID  string     `json:"sceneId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	UserID     string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexScript(script ScriptRecord) error
	IndexScene(scene SceneRecord) error
	DeleteScript(id string) error
	DeleteScene(id string) error
}

// ScriptRecord is the data we index for a script.
type ScriptRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      string `json:"userId"`
}

// SceneRecord is the data we index for a scene. Its ID is the script
// id joined with the scene id so re-indexing replaces in place.
type SceneRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	ScriptID string `json:"scriptId"`
	SceneID  string `json:"sceneId"`
	UserID   string `json:"userId"`
}
