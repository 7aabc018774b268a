package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bridge/api/internal/auth"
	"bridge/api/internal/screenplay"
	"bridge/api/internal/store"
)

func issueTestToken(t *testing.T) string {
	t.Helper()
	token, err := auth.IssueToken([]byte("test-secret"), auth.Claims{
		Sub:  "user-1",
		Name: "Avery",
		JTI:  "jti-test",
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, server *HTTPServer, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBufferString("{}")
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestAddSceneEndpointReturnsSelection(t *testing.T) {
	fs := &fakeStore{
		getScriptFn: scriptWithScenes(screenplay.Scene{ID: "scene_a", Title: "Opening"}),
	}
	server := NewHTTPServer(newTestService(fs), "*")
	token := issueTestToken(t)

	rr := doJSON(t, server, http.MethodPost, "/api/scripts/script-1/scenes", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Scenes          []screenplay.Scene `json:"scenes"`
		SelectedSceneID *string            `json:"selectedSceneId"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(payload.Scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(payload.Scenes))
	}
	if payload.SelectedSceneID == nil || *payload.SelectedSceneID != payload.Scenes[1].ID {
		t.Errorf("selectedSceneId = %v, want new scene id", payload.SelectedSceneID)
	}
}

func TestDeleteUnknownSceneIsSilentNoOp(t *testing.T) {
	fs := &fakeStore{
		getScriptFn: scriptWithScenes(
			screenplay.Scene{ID: "scene_a", Title: "Opening"},
			screenplay.Scene{ID: "scene_b", Title: "Chase"},
		),
	}
	server := NewHTTPServer(newTestService(fs), "*")

	rr := doJSON(t, server, http.MethodDelete, "/api/scripts/script-1/scenes/scene_zzz", "", issueTestToken(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Scenes []screenplay.Scene `json:"scenes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(payload.Scenes) != 2 {
		t.Errorf("got %d scenes, want 2 (unknown id must not delete)", len(payload.Scenes))
	}
}

func TestReorderEndpoint(t *testing.T) {
	fs := &fakeStore{
		getScriptFn: scriptWithScenes(
			screenplay.Scene{ID: "scene_a"},
			screenplay.Scene{ID: "scene_b"},
			screenplay.Scene{ID: "scene_c"},
		),
	}
	server := NewHTTPServer(newTestService(fs), "*")

	rr := doJSON(t, server, http.MethodPost, "/api/scripts/script-1/scenes/reorder", `{"from":0,"to":2}`, issueTestToken(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Scenes []screenplay.Scene `json:"scenes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	got := []string{payload.Scenes[0].ID, payload.Scenes[1].ID, payload.Scenes[2].ID}
	want := []string{"scene_b", "scene_c", "scene_a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBridgeEndpointBusyReturnsConflict(t *testing.T) {
	svc := newTestService(&fakeStore{
		getScriptFn: scriptWithScenes(
			screenplay.Scene{ID: "scene_a"},
			screenplay.Scene{ID: "scene_b"},
		),
	})
	svc.bridgeBusy["script-1"] = true
	server := NewHTTPServer(svc, "*")

	rr := doJSON(t, server, http.MethodPost, "/api/scripts/script-1/scenes/bridge", `{"index":1}`, issueTestToken(t))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "BRIDGE_IN_PROGRESS" {
		t.Errorf("code = %v, want BRIDGE_IN_PROGRESS", payload["code"])
	}
}

func TestGetUnknownScriptReturnsNotFound(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/scripts/nope", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", payload["code"])
	}
}

func TestImportEndpointJSONText(t *testing.T) {
	var inserted store.Script
	fs := &fakeStore{
		insertScriptFn: func(_ context.Context, script store.Script) error {
			inserted = script
			return nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")

	body := `{"title":"Heist","text":"INT. VAULT - NIGHT\n\nThe door swings open."}`
	rr := doJSON(t, server, http.MethodPost, "/api/scripts/import", body, issueTestToken(t))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(inserted.Scenes) != 1 || inserted.Scenes[0].Title != "INT. VAULT - NIGHT" {
		t.Errorf("imported scenes = %+v", inserted.Scenes)
	}
}

func TestExportEndpointRejectsUnknownFormat(t *testing.T) {
	fs := &fakeStore{
		getScriptFn: scriptWithScenes(screenplay.Scene{ID: "scene_a"}),
	}
	server := NewHTTPServer(newTestService(fs), "*")

	rr := doJSON(t, server, http.MethodPost, "/api/scripts/script-1/export", `{"format":"rtf"}`, issueTestToken(t))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}
