package search

import (
	"context"
	"log"

	"bridge/api/internal/screenplay"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexScript pushes a script and its scenes to Meilisearch
// (fire-and-forget). staleSceneIDs lists scene ids that existed before
// the update but no longer do; their scene documents are removed.
func (s *Service) IndexScript(script ScriptRecord, scenes []screenplay.Scene, staleSceneIDs []string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records := make([]SceneRecord, 0, len(scenes))
	for _, scene := range scenes {
		records = append(records, SceneRecord{
			ID:       script.ID + "_" + scene.ID,
			Title:    scene.Title,
			Content:  scene.Content,
			ScriptID: script.ID,
			SceneID:  scene.ID,
			UserID:   script.UserID,
		})
	}
	go func() {
		if err := s.meili.IndexScript(script); err != nil {
			log.Printf("search: index script %s: %v", script.ID, err)
		}
		if err := s.meili.IndexScenes(records); err != nil {
			log.Printf("search: index scenes for %s: %v", script.ID, err)
		}
		for _, sceneID := range staleSceneIDs {
			if err := s.meili.DeleteScene(script.ID + "_" + sceneID); err != nil {
				log.Printf("search: delete scene %s_%s: %v", script.ID, sceneID, err)
			}
		}
	}()
}

// DeleteScript removes a script and its scenes from the search index
// (fire-and-forget).
func (s *Service) DeleteScript(scriptID string, sceneIDs []string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteScript(scriptID); err != nil {
			log.Printf("search: delete script %s: %v", scriptID, err)
		}
		for _, sceneID := range sceneIDs {
			if err := s.meili.DeleteScene(scriptID + "_" + sceneID); err != nil {
				log.Printf("search: delete scene %s_%s: %v", scriptID, sceneID, err)
			}
		}
	}()
}

// ReindexAll pushes the given records to Meilisearch.
func (s *Service) ReindexAll(scripts []ScriptRecord, scenes []SceneRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	for _, script := range scripts {
		if err := s.meili.IndexScript(script); err != nil {
			log.Printf("search: reindex script %s: %v", script.ID, err)
		}
	}
	if len(scenes) > 0 {
		if err := s.meili.IndexScenes(scenes); err != nil {
			log.Printf("search: reindex scenes: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	scripts, scenes, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(scripts, scenes)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
