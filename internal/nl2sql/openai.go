package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// SummaryModel overrides Model for summarization calls when set.
	SummaryModel string
	Temperature  float64
	Timeout      time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint. It
// implements both Translator and Summarizer; these are the only two network
// calls the answering pipeline makes besides the warehouse query itself.
type OpenAIClient struct {
	baseURL      string
	apiKey       string
	model        string
	summaryModel string
	temperature  float64
	client       *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-5"
	}
	summaryModel := strings.TrimSpace(cfg.SummaryModel)
	if summaryModel == "" {
		summaryModel = model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        model,
		summaryModel: summaryModel,
		temperature:  cfg.Temperature,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (c *OpenAIClient) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Result{}, fmt.Errorf("question is required")
	}

	content, err := c.complete(ctx, c.model, sqlSystemPrompt(req.Dialect), sqlUserPrompt(req))
	if err != nil {
		return Result{}, err
	}

	sqlText := stripMarkdownSQL(content)
	if strings.TrimSpace(sqlText) == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{
		SQL:      sqlText,
		Provider: "openai-compatible",
		Model:    c.model,
	}, nil
}

func (c *OpenAIClient) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", fmt.Errorf("question is required")
	}

	userPrompt, err := summaryUserPrompt(req)
	if err != nil {
		return "", err
	}
	content, err := c.complete(ctx, c.summaryModel, summarySystemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(content)
	if summary == "" {
		return "", fmt.Errorf("model returned empty summary")
	}
	return summary, nil
}

func (c *OpenAIClient) complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": c.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func sqlSystemPrompt(dialect string) string {
	if strings.TrimSpace(dialect) == "" {
		dialect = "DuckDB"
	}
	return "You convert natural language questions about e-commerce data into a single " + dialect + " SQL query. " +
		"Return ONLY SQL. No markdown, no explanation, no backticks. " +
		"End the query with a semicolon."
}

func sqlUserPrompt(req Request) string {
	return fmt.Sprintf(
		"Schema:\n%s\nQuestion:\n%s\n\nRules:\n- Use only listed tables and columns.\n- Prefer explicit columns over SELECT *.\n- Output a single SQL query only.",
		req.Schema,
		strings.TrimSpace(req.Question),
	)
}

const summarySystemPrompt = "You turn query results into a short professional business answer. " +
	"Start with a direct answer to the question, include the specific numbers, " +
	"and keep it to one or two short paragraphs."

func summaryUserPrompt(req SummaryRequest) (string, error) {
	data, err := json.Marshal(map[string]any{
		"columns": req.Columns,
		"rows":    req.Rows,
	})
	if err != nil {
		return "", fmt.Errorf("marshal result context: %w", err)
	}
	return fmt.Sprintf(
		"Question:\n%s\n\nQuery result (JSON):\n%s",
		strings.TrimSpace(req.Question),
		string(data),
	), nil
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
