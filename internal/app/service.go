package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"bridge/api/internal/ai"
	"bridge/api/internal/auth"
	"bridge/api/internal/authpw"
	"bridge/api/internal/blob"
	"bridge/api/internal/config"
	"bridge/api/internal/email"
	"bridge/api/internal/export"
	"bridge/api/internal/gitrepo"
	"bridge/api/internal/screenplay"
	"bridge/api/internal/search"
	"bridge/api/internal/store"
	"bridge/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	ListScripts(context.Context, string) ([]store.ScriptSummary, error)
	GetScript(context.Context, string, string) (store.Script, error)
	InsertScript(context.Context, store.Script) error
	UpdateScriptMeta(context.Context, string, string, string, string) error
	ReplaceScenes(context.Context, string, string, []screenplay.Scene) error
	DeleteScript(context.Context, string, string) error
	Ping(ctx context.Context) error
}

// sessionStore is the refresh-token backend. Redis when configured,
// PostgreSQL otherwise.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID, displayName string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type gitService interface {
	EnsureScriptRepo(string, gitrepo.Content, string) error
	CommitSnapshot(string, gitrepo.Content, string, string) (store.CommitInfo, error)
	GetSnapshotByHash(string, string) (gitrepo.Content, store.CommitInfo, error)
	History(string, int) ([]store.CommitInfo, error)
	DeleteScriptRepo(string) error
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexScript(script search.ScriptRecord, scenes []screenplay.Scene, staleSceneIDs []string)
	DeleteScript(scriptID string, sceneIDs []string)
}

type aiClient interface {
	Configured() bool
	SynthesizeBridge(ctx context.Context, req screenplay.BridgeRequest) (string, error)
	EnhanceScene(ctx context.Context, content, enhancementType string, characters []string, scriptContext string) (string, error)
	SceneSuggestions(ctx context.Context, content string, characters []string) ([]string, error)
	Chat(ctx context.Context, message string, history []ai.Message) (string, error)
}

type exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type uploadArchive interface {
	SaveUpload(ctx context.Context, scriptID, filename, contentType string, data []byte) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	git      gitService
	search   searchService
	ai       aiClient
	export   exporter
	authpw   *authpw.Service
	email    *email.Service
	blob     uploadArchive

	bridgeMu   sync.Mutex
	bridgeBusy map[string]bool
}

type Deps struct {
	Store  *store.PostgresStore
	Git    *gitrepo.Service
	Search *search.Service
	AI     *ai.Client
	AuthPW *authpw.Service
	Email  *email.Service
	Blob   *blob.Store
}

// New wires the service. Sessions is passed separately because the
// backend depends on whether Redis is reachable at startup.
func New(cfg config.Config, deps Deps, sessions sessionStore) *Service {
	s := &Service{
		cfg:        cfg,
		store:      deps.Store,
		sessions:   sessions,
		git:        deps.Git,
		search:     deps.Search,
		ai:         deps.AI,
		authpw:     deps.AuthPW,
		email:      deps.Email,
		bridgeBusy: make(map[string]bool),
	}
	if deps.Blob != nil {
		s.blob = deps.Blob
	}
	return s
}

// SetExporter is called after construction because the export
// renderer reads content back through the service.
func (s *Service) SetExporter(e exporter) {
	s.export = e
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// SendVerificationEmail mails the signup verification link.
// Best-effort; failures are logged, not surfaced.
func (s *Service) SendVerificationEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := strings.TrimRight(s.cfg.AppBaseURL, "/") + "/verify-email?token=" + token
	if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
		log.Printf("email: send verification to %s: %v", to, err)
	}
}

func (s *Service) SendPasswordResetEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := strings.TrimRight(s.cfg.AppBaseURL, "/") + "/reset-password?token=" + token
	if err := s.email.SendPasswordResetEmail(to, userName, url); err != nil {
		log.Printf("email: send password reset to %s: %v", to, err)
	}
}

// CreateSession issues an access/refresh token pair for a signed-in
// user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, user.DisplayName, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) ListScripts(ctx context.Context, userID string) (map[string]any, error) {
	scripts, err := s.store.ListScripts(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(scripts))
	for _, script := range scripts {
		items = append(items, map[string]any{
			"id":          script.ID,
			"title":       script.Title,
			"description": script.Description,
			"sceneCount":  script.SceneCount,
			"createdAt":   script.CreatedAt,
			"updatedAt":   script.UpdatedAt,
		})
	}
	return map[string]any{"scripts": items}, nil
}

func (s *Service) CreateScript(ctx context.Context, userID, userName, title, description string) (map[string]any, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Script"
	}

	script := store.Script{
		ID:          util.NewID("script"),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Scenes:      []screenplay.Scene{},
	}
	if err := s.store.InsertScript(ctx, script); err != nil {
		return nil, err
	}

	if err := s.git.EnsureScriptRepo(script.ID, snapshotContent(script), userName); err != nil {
		log.Printf("gitrepo: init repo for %s: %v", script.ID, err)
	}
	s.indexScript(script, nil)

	return scriptPayload(script, ""), nil
}

func (s *Service) GetScript(ctx context.Context, userID, scriptID string) (map[string]any, error) {
	script, err := s.store.GetScript(ctx, userID, scriptID)
	if err != nil {
		return nil, err
	}
	selected := ""
	if len(script.Scenes) > 0 {
		selected = script.Scenes[0].ID
	}
	return scriptPayload(script, selected), nil
}

func (s *Service) UpdateScriptMeta(ctx context.Context, session Session, scriptID, title, description string) (map[string]any, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	if err := s.store.UpdateScriptMeta(ctx, session.UserID, scriptID, title, strings.TrimSpace(description)); err != nil {
		return nil, err
	}
	script, err := s.store.GetScript(ctx, session.UserID, scriptID)
	if err != nil {
		return nil, err
	}

	s.commitSnapshot(script, session.UserName, "Update script details")
	s.indexScript(script, nil)
	return scriptPayload(script, ""), nil
}

func (s *Service) DeleteScript(ctx context.Context, userID, scriptID string) error {
	script, err := s.store.GetScript(ctx, userID, scriptID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteScript(ctx, userID, scriptID); err != nil {
		return err
	}
	if err := s.git.DeleteScriptRepo(scriptID); err != nil {
		log.Printf("gitrepo: delete repo for %s: %v", scriptID, err)
	}
	s.search.DeleteScript(scriptID, sceneIDs(script.Scenes))
	return nil
}

// mutateScenes loads the scene collection, applies op, and persists
// the whole collection back. The payload always carries the full
// updated collection and the new selection.
func (s *Service) mutateScenes(ctx context.Context, session Session, scriptID, message string, op func([]screenplay.Scene) ([]screenplay.Scene, string)) (map[string]any, error) {
	script, err := s.store.GetScript(ctx, session.UserID, scriptID)
	if err != nil {
		return nil, err
	}

	before := sceneIDs(script.Scenes)
	scenes, selected := op(script.Scenes)
	if err := s.store.ReplaceScenes(ctx, session.UserID, scriptID, scenes); err != nil {
		return nil, err
	}

	script.Scenes = scenes
	s.commitSnapshot(script, session.UserName, message)
	s.indexScript(script, staleSceneIDs(before, scenes))
	return scenesPayload(scenes, selected), nil
}

func (s *Service) AddScene(ctx context.Context, session Session, scriptID string) (map[string]any, error) {
	return s.mutateScenes(ctx, session, scriptID, "Add scene", func(scenes []screenplay.Scene) ([]screenplay.Scene, string) {
		return screenplay.Add(scenes)
	})
}

func (s *Service) DeleteScene(ctx context.Context, session Session, scriptID, sceneID string) (map[string]any, error) {
	return s.mutateScenes(ctx, session, scriptID, "Delete scene", func(scenes []screenplay.Scene) ([]screenplay.Scene, string) {
		return screenplay.Delete(scenes, sceneID)
	})
}

type UpdateSceneInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (s *Service) UpdateScene(ctx context.Context, session Session, scriptID, sceneID string, input UpdateSceneInput) (map[string]any, error) {
	message := "Update scene"
	if input.Title != nil && input.Content == nil {
		message = "Rename scene"
	}
	return s.mutateScenes(ctx, session, scriptID, message, func(scenes []screenplay.Scene) ([]screenplay.Scene, string) {
		if input.Title != nil {
			scenes = screenplay.Rename(scenes, sceneID, *input.Title)
		}
		if input.Content != nil {
			scenes = screenplay.SetContent(scenes, sceneID, *input.Content)
		}
		return scenes, sceneID
	})
}

func (s *Service) ReorderScenes(ctx context.Context, session Session, scriptID string, from, to int) (map[string]any, error) {
	return s.mutateScenes(ctx, session, scriptID, "Reorder scenes", func(scenes []screenplay.Scene) ([]screenplay.Scene, string) {
		selected := ""
		if from >= 0 && from < len(scenes) {
			selected = scenes[from].ID
		}
		return screenplay.Reorder(scenes, from, to), selected
	})
}

// CreateBridge runs AI synthesis for the gap at index. One synthesis
// per script at a time; a second request while one is pending gets a
// 409. The collection is only persisted after synthesis succeeds.
func (s *Service) CreateBridge(ctx context.Context, session Session, scriptID string, index int) (map[string]any, error) {
	if s.ai == nil || !s.ai.Configured() {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI provider not configured", nil)
	}

	s.bridgeMu.Lock()
	if s.bridgeBusy[scriptID] {
		s.bridgeMu.Unlock()
		return nil, domainError(http.StatusConflict, "BRIDGE_IN_PROGRESS", "A bridge scene is already being generated for this script", nil)
	}
	s.bridgeBusy[scriptID] = true
	s.bridgeMu.Unlock()

	defer func() {
		s.bridgeMu.Lock()
		delete(s.bridgeBusy, scriptID)
		s.bridgeMu.Unlock()
	}()

	script, err := s.store.GetScript(ctx, session.UserID, scriptID)
	if err != nil {
		return nil, err
	}

	synth := screenplay.SynthesizeFunc(func(ctx context.Context, req screenplay.BridgeRequest) (string, error) {
		req.ScriptContext = scriptContext(script)
		return s.ai.SynthesizeBridge(ctx, req)
	})

	scenes, selected, err := screenplay.CreateBridge(ctx, script.Scenes, index, synth)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "SYNTHESIS_FAILED", "Bridge scene generation failed", nil)
	}
	if selected == "" {
		// Boundary index: nothing to bridge, collection untouched.
		return scenesPayload(script.Scenes, ""), nil
	}

	if err := s.store.ReplaceScenes(ctx, session.UserID, scriptID, scenes); err != nil {
		return nil, err
	}
	script.Scenes = scenes
	s.commitSnapshot(script, session.UserName, "Add bridge scene")
	s.indexScript(script, nil)
	return scenesPayload(scenes, selected), nil
}

// ImportScript creates a script from an uploaded screenplay text.
// Binary payloads get the fixed placeholder document.
func (s *Service) ImportScript(ctx context.Context, session Session, title, filename, contentType string, data []byte) (map[string]any, error) {
	var scenes []screenplay.Scene
	if screenplay.IsPlainText(data) {
		scenes = screenplay.Segment(string(data))
	} else {
		scenes = screenplay.PlaceholderDocument()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = titleFromFilename(filename)
	}

	script := store.Script{
		ID:     util.NewID("script"),
		UserID: session.UserID,
		Title:  title,
		Scenes: scenes,
	}
	if err := s.store.InsertScript(ctx, script); err != nil {
		return nil, err
	}

	if err := s.git.EnsureScriptRepo(script.ID, snapshotContent(script), session.UserName); err != nil {
		log.Printf("gitrepo: init repo for %s: %v", script.ID, err)
	}
	if s.blob != nil {
		if err := s.blob.SaveUpload(ctx, script.ID, uploadFilename(filename), contentType, data); err != nil {
			log.Printf("blob: archive upload for %s: %v", script.ID, err)
		}
	}
	s.indexScript(script, nil)

	selected := ""
	if len(scenes) > 0 {
		selected = scenes[0].ID
	}
	return scriptPayload(script, selected), nil
}

func (s *Service) History(ctx context.Context, userID, scriptID string, limit int) (map[string]any, error) {
	if _, err := s.store.GetScript(ctx, userID, scriptID); err != nil {
		return nil, err
	}
	commits, err := s.git.History(scriptID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(commits))
	for _, commit := range commits {
		items = append(items, map[string]any{
			"hash":      commit.Hash,
			"message":   commit.Message,
			"author":    commit.Author,
			"createdAt": commit.CreatedAt,
		})
	}
	return map[string]any{"commits": items}, nil
}

func (s *Service) Snapshot(ctx context.Context, userID, scriptID, hash string) (map[string]any, error) {
	if _, err := s.store.GetScript(ctx, userID, scriptID); err != nil {
		return nil, err
	}
	content, commit, err := s.git.GetSnapshotByHash(scriptID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
	}
	return map[string]any{
		"commit": map[string]any{
			"hash":      commit.Hash,
			"message":   commit.Message,
			"author":    commit.Author,
			"createdAt": commit.CreatedAt,
		},
		"title":       content.Title,
		"description": content.Description,
		"scenes":      content.Scenes,
	}, nil
}

func (s *Service) ExportScript(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.export.Export(ctx, req)
}

// GetScreenplay satisfies export.DataStore. "latest" reads the live
// collection; any other version is resolved as a commit hash.
func (s *Service) GetScreenplay(ctx context.Context, userID, scriptID, version string) (export.Screenplay, error) {
	script, err := s.store.GetScript(ctx, userID, scriptID)
	if err != nil {
		return export.Screenplay{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return export.Screenplay{}, err
	}

	if version != "" && version != "latest" {
		content, commit, err := s.git.GetSnapshotByHash(scriptID, version)
		if err != nil {
			return export.Screenplay{}, export.ErrContentUnavailable
		}
		return export.Screenplay{
			ID:          script.ID,
			Title:       content.Title,
			Description: content.Description,
			Scenes:      content.Scenes,
			Author:      user.DisplayName,
			UpdatedAt:   commit.CreatedAt,
		}, nil
	}

	return export.Screenplay{
		ID:          script.ID,
		Title:       script.Title,
		Description: script.Description,
		Scenes:      script.Scenes,
		Author:      user.DisplayName,
		UpdatedAt:   script.UpdatedAt,
	}, nil
}

func (s *Service) EnhanceScene(ctx context.Context, content, enhancementType string, characters []string, scriptContext string) (map[string]any, error) {
	if s.ai == nil || !s.ai.Configured() {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI provider not configured", nil)
	}
	enhanced, err := s.ai.EnhanceScene(ctx, content, enhancementType, characters, scriptContext)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "AI_FAILED", "Scene enhancement failed", nil)
	}
	return map[string]any{"enhancedContent": enhanced}, nil
}

func (s *Service) SceneSuggestions(ctx context.Context, content string, characters []string) (map[string]any, error) {
	if s.ai == nil || !s.ai.Configured() {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI provider not configured", nil)
	}
	suggestions, err := s.ai.SceneSuggestions(ctx, content, characters)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "AI_FAILED", "Scene suggestions failed", nil)
	}
	return map[string]any{"suggestions": suggestions}, nil
}

func (s *Service) Chat(ctx context.Context, message, scriptContext string) (map[string]any, error) {
	if s.ai == nil || !s.ai.Configured() {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI provider not configured", nil)
	}
	var history []ai.Message
	if strings.TrimSpace(scriptContext) != "" {
		history = append(history, ai.Message{
			Role:    "user",
			Content: "Here is my current script for context:\n\n" + scriptContext,
		})
	}
	reply, err := s.ai.Chat(ctx, message, history)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "AI_FAILED", "Chat failed", nil)
	}
	return map[string]any{"response": reply}, nil
}

func (s *Service) Search(ctx context.Context, q, filterType, userID string, limit, offset int) (search.Response, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.search.Search(search.Query{
		Text:       q,
		FilterType: search.ResultType(filterType),
		UserID:     userID,
		Limit:      limit,
		Offset:     offset,
	}), nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) commitSnapshot(script store.Script, author, message string) {
	if _, err := s.git.CommitSnapshot(script.ID, snapshotContent(script), author, message); err != nil {
		log.Printf("gitrepo: commit snapshot for %s: %v", script.ID, err)
	}
}

func (s *Service) indexScript(script store.Script, staleIDs []string) {
	s.search.IndexScript(search.ScriptRecord{
		ID:          script.ID,
		Title:       script.Title,
		Description: script.Description,
		UserID:      script.UserID,
	}, script.Scenes, staleIDs)
}

func snapshotContent(script store.Script) gitrepo.Content {
	return gitrepo.Content{
		Title:       script.Title,
		Description: script.Description,
		Scenes:      script.Scenes,
	}
}

func scriptContext(script store.Script) string {
	if script.Description == "" {
		return script.Title
	}
	return script.Title + ": " + script.Description
}

func scriptPayload(script store.Script, selected string) map[string]any {
	payload := map[string]any{
		"id":              script.ID,
		"title":           script.Title,
		"description":     script.Description,
		"scenes":          script.Scenes,
		"createdAt":       script.CreatedAt,
		"updatedAt":       script.UpdatedAt,
		"selectedSceneId": nullableID(selected),
	}
	return payload
}

func scenesPayload(scenes []screenplay.Scene, selected string) map[string]any {
	return map[string]any{
		"scenes":          scenes,
		"selectedSceneId": nullableID(selected),
	}
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func sceneIDs(scenes []screenplay.Scene) []string {
	ids := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		ids = append(ids, scene.ID)
	}
	return ids
}

// staleSceneIDs lists ids present before the mutation but absent
// after, so their search documents can be dropped.
func staleSceneIDs(before []string, after []screenplay.Scene) []string {
	remaining := make(map[string]struct{}, len(after))
	for _, scene := range after {
		remaining[scene.ID] = struct{}{}
	}
	var stale []string
	for _, id := range before {
		if _, ok := remaining[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}

func titleFromFilename(filename string) string {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "Imported Script"
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Imported Script"
	}
	return name
}

func uploadFilename(filename string) string {
	if strings.TrimSpace(filename) == "" {
		return "upload.txt"
	}
	return filename
}
