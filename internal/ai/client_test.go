package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bridge/api/internal/screenplay"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", "test-model")
}

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestSynthesizeBridgeSendsSceneContext(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(completionResponse("INT. HALLWAY - CONTINUOUS\n\nA beat.")))
	})

	out, err := client.SynthesizeBridge(context.Background(), screenplay.BridgeRequest{
		Previous:   "EXT. STREET - NIGHT",
		Next:       "INT. WAREHOUSE - NIGHT",
		Characters: []string{"ALICE", "BOB"},
	})
	if err != nil {
		t.Fatalf("SynthesizeBridge() error = %v", err)
	}
	if out != "INT. HALLWAY - CONTINUOUS\n\nA beat." {
		t.Fatalf("SynthesizeBridge() = %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Fatalf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	user := gotReq.Messages[1].Content
	if !strings.Contains(user, "EXT. STREET - NIGHT") || !strings.Contains(user, "INT. WAREHOUSE - NIGHT") {
		t.Fatalf("prompt missing scene content: %q", user)
	}
	if !strings.Contains(user, "ALICE, BOB") {
		t.Fatalf("prompt missing characters: %q", user)
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	_, err := client.SynthesizeBridge(context.Background(), screenplay.BridgeRequest{Previous: "a", Next: "b"})
	if err == nil {
		t.Fatal("SynthesizeBridge() error = nil, want API error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error = %v, want rate limited detail", err)
	}
}

func TestSceneSuggestionsSplitsNumberedList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("1. Tighten the opening exchange.\n\n2. Give Bob a physical tell.\n\n3. End on the unanswered phone.")))
	})

	got, err := client.SceneSuggestions(context.Background(), "INT. OFFICE - DAY", []string{"BOB"})
	if err != nil {
		t.Fatalf("SceneSuggestions() error = %v", err)
	}
	want := []string{
		"Tighten the opening exchange.",
		"Give Bob a physical tell.",
		"End on the unanswered phone.",
	}
	if len(got) != len(want) {
		t.Fatalf("SceneSuggestions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("suggestion[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEnhanceSceneVariesPromptByType(t *testing.T) {
	tests := []struct {
		enhancementType string
		wantFragment    string
	}{
		{"dialogue", "improving the dialogue"},
		{"action", "enhancing the action descriptions"},
		{"characterDevelopment", "improving character development"},
		{"plotDevelopment", "strengthening the plot elements"},
		{"unknown", "maintaining its original purpose"},
	}
	for _, tt := range tests {
		t.Run(tt.enhancementType, func(t *testing.T) {
			var gotReq chatRequest
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&gotReq)
				w.Write([]byte(completionResponse("enhanced")))
			})
			if _, err := client.EnhanceScene(context.Background(), "scene", tt.enhancementType, nil, ""); err != nil {
				t.Fatalf("EnhanceScene() error = %v", err)
			}
			if !strings.Contains(gotReq.Messages[1].Content, tt.wantFragment) {
				t.Fatalf("prompt for %q missing %q", tt.enhancementType, tt.wantFragment)
			}
		})
	}
}

func TestChatPrependsSystemAndHistory(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(completionResponse("Try a cold open.")))
	})

	history := []Message{
		{Role: "user", Content: "How do I open act two?"},
		{Role: "assistant", Content: "Raise the stakes right away."},
	}
	out, err := client.Chat(context.Background(), "Can you give an example?", history)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if out != "Try a cold open." {
		t.Fatalf("Chat() = %q", out)
	}
	if len(gotReq.Messages) != 4 {
		t.Fatalf("messages len = %d, want 4", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[3].Content != "Can you give an example?" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := New("https://api.example.com/v1", "", "test-model")
	_, err := client.Chat(context.Background(), "hello", nil)
	if err != ErrNotConfigured {
		t.Fatalf("Chat() error = %v, want ErrNotConfigured", err)
	}
}
