package export

import (
	"context"
	"fmt"
	"html/template"
)

// DataStore defines the interface for loading screenplay content.
// The "latest" version comes from the database; a commit hash loads a
// historical snapshot from the script's repo.
type DataStore interface {
	GetScreenplay(ctx context.Context, userID, scriptID, version string) (Screenplay, error)
}

// Service provides screenplay export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	script, err := s.store.GetScreenplay(ctx, req.UserID, req.ScriptID, req.Version)
	if err != nil {
		return nil, fmt.Errorf("get screenplay: %w", err)
	}

	data := TemplateData{
		Title:       script.Title,
		Description: script.Description,
		Author:      script.Author,
		UpdatedAt:   script.UpdatedAt,
		Scenes:      make([]TemplateScene, 0, len(script.Scenes)),
	}
	for _, scene := range script.Scenes {
		data.Scenes = append(data.Scenes, TemplateScene{
			Title:         scene.Title,
			ContentHTML:   template.HTML(SceneContentToHTML(scene.Content)),
			IsBridgeScene: scene.IsBridgeScene,
		})
	}

	html, err := RenderScreenplayHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, script.Title)
	case FormatDOCX:
		return exportDOCX(html, script.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
