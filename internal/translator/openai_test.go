package translator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/msto63/englishquery/internal/history"
	"github.com/msto63/englishquery/pkg/core/apperr"
)

type chatRequest struct {
	Model           string `json:"model"`
	ReasoningEffort string `json:"reasoning_effort"`
	Messages        []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// newChatServer answers chat completions with reply and records requests
func newChatServer(t *testing.T, status int, reply string, got *[]chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		if got != nil {
			*got = append(*got, req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
			return
		}
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAITranslator_Translate(t *testing.T) {
	var requests []chatRequest
	srv := newChatServer(t, http.StatusOK, "```sql\nSELECT name, population FROM country;\n```", &requests)

	tr := NewOpenAI(Options{
		APIKey:          "sk-test",
		BaseURL:         srv.URL + "/v1",
		ReasoningEffort: "low",
	})

	reply, err := tr.Translate(context.Background(), "  show all countries  ")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if reply != "```sql\nSELECT name, population FROM country;\n```" {
		t.Errorf("Translate() = %q, want the raw reply", reply)
	}

	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	req := requests[0]
	if req.Model != DefaultOpenAIModel {
		t.Errorf("model = %v, want %v", req.Model, DefaultOpenAIModel)
	}
	if req.ReasoningEffort != "low" {
		t.Errorf("reasoning_effort = %v, want low", req.ReasoningEffort)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v, want system + user", req.Messages)
	}
	if req.Messages[1].Content != "show all countries" {
		t.Errorf("user message = %q, want trimmed question", req.Messages[1].Content)
	}
}

func TestOpenAITranslator_HistoryAndSchema(t *testing.T) {
	var requests []chatRequest
	srv := newChatServer(t, http.StatusOK, "SELECT 1;", &requests)

	store := history.NewMemoryStore()
	tr := NewOpenAI(Options{
		APIKey:       "sk-test",
		BaseURL:      srv.URL + "/v1",
		History:      store,
		Conversation: "english_query",
		HistoryLimit: 10,
	})
	tr.SetSchema("# Table country, columns = [name char(52)]")

	ctx := context.Background()
	if _, err := tr.Translate(ctx, "first question"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if _, err := tr.Translate(ctx, "second question"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	second := requests[1]
	if !strings.Contains(second.Messages[0].Content, "# Table country") {
		t.Error("system prompt should carry the schema")
	}
	// system, previous question, previous answer, new question
	if len(second.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(second.Messages))
	}
	if second.Messages[1].Content != "first question" || second.Messages[2].Role != "assistant" {
		t.Errorf("history turns = %+v", second.Messages[1:3])
	}

	msgs, _ := store.Recent(ctx, "english_query", 0)
	if len(msgs) != 4 {
		t.Errorf("stored messages = %d, want 4", len(msgs))
	}
}

func TestOpenAITranslator_APIError(t *testing.T) {
	srv := newChatServer(t, http.StatusUnauthorized, "", nil)
	tr := NewOpenAI(Options{APIKey: "sk-bad", BaseURL: srv.URL + "/v1"})

	_, err := tr.Translate(context.Background(), "show all countries")
	if !apperr.HasCode(err, apperr.CodeTranslation) {
		t.Fatalf("Translate() error = %v, want TRANSLATION", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should mention the status: %v", err)
	}
}

func TestOpenAITranslator_EmptyReply(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "   ", nil)
	tr := NewOpenAI(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})

	if _, err := tr.Translate(context.Background(), "show all countries"); !apperr.HasCode(err, apperr.CodeTranslation) {
		t.Errorf("Translate() error = %v, want TRANSLATION", err)
	}
}

func TestOpenAITranslator_BlankInput(t *testing.T) {
	tr := NewOpenAI(Options{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1"})

	_, err := tr.Translate(context.Background(), " \n ")
	if !apperr.HasCode(err, apperr.CodeBlankInput) {
		t.Errorf("Translate() error = %v, want BLANK_INPUT", err)
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Options{Provider: ProviderOpenAI}); !apperr.HasCode(err, apperr.CodeConfiguration) {
		t.Errorf("New() without key error = %v, want CONFIGURATION", err)
	}
	if _, err := New(ctx, Options{Provider: "llama", APIKey: "k"}); !apperr.HasCode(err, apperr.CodeConfiguration) {
		t.Errorf("New() unknown provider error = %v, want CONFIGURATION", err)
	}

	tr, err := New(ctx, Options{APIKey: "k"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tr.Name() != ProviderOpenAI {
		t.Errorf("Name() = %v, want openai", tr.Name())
	}
	if _, ok := tr.(SchemaAware); !ok {
		t.Error("openai translator should accept a schema")
	}

	tr, err = New(ctx, Options{Provider: ProviderGemini, APIKey: "k"})
	if err != nil {
		t.Fatalf("New(gemini) error = %v", err)
	}
	if tr.Name() != ProviderGemini {
		t.Errorf("Name() = %v, want gemini", tr.Name())
	}
}

func TestDescribeOpenAIError_Passthrough(t *testing.T) {
	plain := errors.New("dial tcp: refused")
	if got := describeOpenAIError(plain); got != plain {
		t.Errorf("describeOpenAIError() = %v, want the same error", got)
	}
}
