package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across scripts and their scenes
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
// Scenes live inside the scripts table as a JSONB array, so the scene
// sub-query unnests them with jsonb_array_elements.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Scripts sub-query
	if q.FilterType == "" || q.FilterType == ResultScript {
		scriptVector := "to_tsvector('english', s.title || ' ' || coalesce(s.description, ''))"
		scriptWhere := scriptVector + " @@ " + tsQuery
		if q.UserID != "" {
			scriptWhere += fmt.Sprintf(" AND s.user_id = $%d", argN)
			args = append(args, q.UserID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'script'::text AS type, s.id, s.title,
				ts_headline('english', coalesce(s.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				s.id AS script_id, ''::text AS scene_id,
				ts_rank(%s, %s) AS rank
			FROM scripts s
			WHERE %s`, tsQuery, scriptVector, tsQuery, scriptWhere))
	}

	// Scenes sub-query
	if q.FilterType == "" || q.FilterType == ResultScene {
		sceneVector := "to_tsvector('english', coalesce(scene->>'title', '') || ' ' || coalesce(scene->>'content', ''))"
		sceneWhere := sceneVector + " @@ " + tsQuery
		if q.UserID != "" {
			sceneWhere += fmt.Sprintf(" AND s.user_id = $%d", argN)
			args = append(args, q.UserID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'scene'::text AS type, s.id || '_' || (scene->>'id') AS id, coalesce(scene->>'title', '') AS title,
				ts_headline('english', coalesce(scene->>'content', ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				s.id AS script_id, scene->>'id' AS scene_id,
				ts_rank(%s, %s) AS rank
			FROM scripts s, jsonb_array_elements(s.scenes) AS scene
			WHERE %s`, tsQuery, sceneVector, tsQuery, sceneWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	// Count query
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	// Data query
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, script_id, scene_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.ScriptID, &r.SceneID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ScriptRecord, []SceneRecord, error) {
	scriptRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, coalesce(description, ''), user_id
		FROM scripts
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load scripts: %w", err)
	}
	defer scriptRows.Close()

	scripts := make([]ScriptRecord, 0)
	for scriptRows.Next() {
		var s ScriptRecord
		if err := scriptRows.Scan(&s.ID, &s.Title, &s.Description, &s.UserID); err != nil {
			return nil, nil, fmt.Errorf("scan script: %w", err)
		}
		scripts = append(scripts, s)
	}
	if err := scriptRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate scripts: %w", err)
	}

	sceneRows, err := p.db.QueryContext(ctx, `
		SELECT s.id || '_' || (scene->>'id'), coalesce(scene->>'title', ''), coalesce(scene->>'content', ''),
			s.id, scene->>'id', s.user_id
		FROM scripts s, jsonb_array_elements(s.scenes) AS scene
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load scenes: %w", err)
	}
	defer sceneRows.Close()

	scenes := make([]SceneRecord, 0)
	for sceneRows.Next() {
		var sc SceneRecord
		if err := sceneRows.Scan(&sc.ID, &sc.Title, &sc.Content, &sc.ScriptID, &sc.SceneID, &sc.UserID); err != nil {
			return nil, nil, fmt.Errorf("scan scene: %w", err)
		}
		scenes = append(scenes, sc)
	}
	if err := sceneRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate scenes: %w", err)
	}

	return scripts, scenes, nil
}
