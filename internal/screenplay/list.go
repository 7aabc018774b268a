package screenplay

import (
	"context"
	"fmt"

	"bridge/api/internal/util"
)

// Add appends a new empty scene titled "New Scene N" and selects it.
func Add(scenes []Scene) ([]Scene, string) {
	scene := Scene{
		ID:         util.NewID("scene"),
		Title:      fmt.Sprintf("New Scene %d", len(scenes)+1),
		Content:    "",
		Characters: []string{},
	}
	out := make([]Scene, 0, len(scenes)+1)
	out = append(out, scenes...)
	out = append(out, scene)
	return out, scene.ID
}

// Delete removes the scene with the given id. An unknown id is a
// silent no-op. The first remaining scene becomes the selection; an
// empty result has no selection.
func Delete(scenes []Scene, sceneID string) ([]Scene, string) {
	out := make([]Scene, 0, len(scenes))
	for _, scene := range scenes {
		if scene.ID == sceneID {
			continue
		}
		out = append(out, scene)
	}
	if len(out) == 0 {
		return out, ""
	}
	return out, out[0].ID
}

// Rename replaces the title of the scene with the given id. The new
// title is not validated; an unknown id is a silent no-op.
func Rename(scenes []Scene, sceneID, title string) []Scene {
	out := make([]Scene, len(scenes))
	copy(out, scenes)
	for i := range out {
		if out[i].ID == sceneID {
			out[i].Title = title
		}
	}
	return out
}

// SetContent replaces the content of the scene with the given id.
func SetContent(scenes []Scene, sceneID, content string) []Scene {
	out := make([]Scene, len(scenes))
	copy(out, scenes)
	for i := range out {
		if out[i].ID == sceneID {
			out[i].Content = content
		}
	}
	return out
}

// Reorder moves the element at from to position to. Out-of-range
// indices are a silent no-op returning the input order unchanged.
func Reorder(scenes []Scene, from, to int) []Scene {
	out := make([]Scene, len(scenes))
	copy(out, scenes)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	rest := make([]Scene, 0, len(scenes))
	rest = append(rest, out[:to]...)
	rest = append(rest, moved)
	rest = append(rest, out[to:]...)
	return rest
}

// CreateBridge synthesizes a new scene between index-1 and index and
// inserts it at index. An index without both a preceding and a
// following scene is a silent no-op. When the synthesizer fails the
// input is returned unchanged along with the error; no partial scene
// is ever inserted.
func CreateBridge(ctx context.Context, scenes []Scene, index int, synth Synthesizer) ([]Scene, string, error) {
	if index <= 0 || index >= len(scenes) {
		return scenes, "", nil
	}

	previous := scenes[index-1]
	next := scenes[index]
	characters := unionCharacters(previous.Characters, next.Characters)

	content, err := synth.SynthesizeBridge(ctx, BridgeRequest{
		Previous:   previous.Content,
		Next:       next.Content,
		Characters: characters,
	})
	if err != nil {
		return scenes, "", fmt.Errorf("synthesize bridge: %w", err)
	}

	bridge := Scene{
		ID:            util.NewID("scene"),
		Title:         "Bridge: " + previous.Title + " → " + next.Title,
		Content:       content,
		Characters:    characters,
		IsBridgeScene: true,
	}

	out := make([]Scene, 0, len(scenes)+1)
	out = append(out, scenes[:index]...)
	out = append(out, bridge)
	out = append(out, scenes[index:]...)
	return out, bridge.ID, nil
}

// unionCharacters merges two character lists preserving first-seen
// order and dropping duplicates.
func unionCharacters(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, name := range a {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range b {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
