package nl2sql

import "context"

type Request struct {
	Question string `json:"question"`
	Schema   string `json:"schema"`
	Dialect  string `json:"dialect"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type SummaryRequest struct {
	Question string   `json:"question"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
}

// Translator turns a natural-language question into a single SQL query for
// the described schema. Implementations never return an empty SQL string
// without an error.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// Summarizer turns a question plus its query result into a short prose
// answer.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}
