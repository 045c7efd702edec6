package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
	if got := stripMarkdownSQL("SELECT 2;"); got != "SELECT 2;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}

func TestTranslateReturnsSQL(t *testing.T) {
	server := httptest.NewServer(chatCompletion(t, "```sql\nSELECT SUM(total_sales) AS total_sales FROM product_total_sales;\n```"))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Translate(context.Background(), Request{
		Question: "What is my total sales?",
		Schema:   "Tables:\n1. product_total_sales: ...",
		Dialect:  "DuckDB",
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if !strings.HasPrefix(result.SQL, "SELECT SUM(total_sales)") {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Provider != "openai-compatible" {
		t.Fatalf("Provider = %q", result.Provider)
	}
}

func TestTranslateRejectsEmptyQuestion(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	if _, err := client.Translate(context.Background(), Request{Question: "  "}); err == nil {
		t.Fatal("Translate() expected error for empty question")
	}
}

func TestTranslateRejectsEmptyModelOutput(t *testing.T) {
	server := httptest.NewServer(chatCompletion(t, "```sql\n\n```"))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.Translate(context.Background(), Request{Question: "q", Schema: "s"}); err == nil {
		t.Fatal("Translate() expected error for empty SQL")
	}
}

func TestTranslateSurfacesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Translate(context.Background(), Request{Question: "q", Schema: "s"})
	if err == nil {
		t.Fatal("Translate() expected upstream error")
	}
	if !strings.Contains(err.Error(), "status=503") {
		t.Fatalf("error = %v", err)
	}
}

func TestSummarizeReturnsProse(t *testing.T) {
	server := httptest.NewServer(chatCompletion(t, "Total sales were $1,042.75 across two items."))
	defer server.Close()

	client := newTestClient(t, server.URL)
	summary, err := client.Summarize(context.Background(), SummaryRequest{
		Question: "What is my total sales?",
		Columns:  []string{"total_sales"},
		Rows:     [][]any{{1042.75}},
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if !strings.Contains(summary, "1,042.75") {
		t.Fatalf("summary = %q", summary)
	}
}

func TestSummarizeUsesSummaryModel(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		gotModel = payload.Model
		writeChoice(w, "ok")
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{
		BaseURL:      server.URL,
		APIKey:       "sk-test",
		Model:        "gpt-5",
		SummaryModel: "gpt-5-mini",
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	if _, err := client.Summarize(context.Background(), SummaryRequest{Question: "q"}); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if gotModel != "gpt-5-mini" {
		t.Fatalf("model = %q", gotModel)
	}
}

func TestNewOpenAIClientRequiresCredentials(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk"}); err == nil {
		t.Fatal("expected error without base URL")
	}
	if _, err := NewOpenAIClient(OpenAIConfig{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func newTestClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(OpenAIConfig{
		BaseURL: baseURL,
		APIKey:  "sk-test",
		Model:   "gpt-5",
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	return client
}

func chatCompletion(t *testing.T, content string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization = %q", got)
		}
		writeChoice(w, content)
	})
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
}
