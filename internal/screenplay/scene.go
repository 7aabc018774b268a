// Package screenplay holds the ordered-scene model for one script and
// the plain-text screenplay segmenter. All list operations are value
// semantics: they never mutate the input slice and return a fresh one.
package screenplay

import "context"

// Scene is one narrative unit of a script. Slice order is narrative
// order; there is no separate sort key.
type Scene struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Characters    []string `json:"characters"`
	IsBridgeScene bool     `json:"isBridgeScene,omitempty"`
}

// BridgeRequest carries the inputs for bridge-scene synthesis.
type BridgeRequest struct {
	Previous      string
	Next          string
	Characters    []string
	ScriptContext string
}

// Synthesizer produces the content of a bridge scene from its two
// neighbours. It may fail; callers abort the insertion on error.
type Synthesizer interface {
	SynthesizeBridge(ctx context.Context, req BridgeRequest) (string, error)
}

// SynthesizeFunc adapts a plain function to the Synthesizer interface.
type SynthesizeFunc func(ctx context.Context, req BridgeRequest) (string, error)

func (f SynthesizeFunc) SynthesizeBridge(ctx context.Context, req BridgeRequest) (string, error) {
	return f(ctx, req)
}
