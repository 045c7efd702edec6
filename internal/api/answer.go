package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/shoptalk/shoptalk/internal/answer"
)

var answerPage = template.Must(template.New("answer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>shoptalk — {{.Question}}</title>
</head>
<body>
<h1>{{.Question}}</h1>
<p>{{.Answer}}</p>
<h2>Generated SQL</h2>
<pre>{{.SQL}}</pre>
</body>
</html>
`))

type rawAnswerResponse struct {
	Question string          `json:"question"`
	SQL      string          `json:"sql"`
	RowCount int             `json:"row_count"`
	Data     json.RawMessage `json:"data"`
}

type cleanAnswerResponse struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
	Answer   string `json:"answer"`
}

func handleAnswerRaw(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	resp, ok := runAnswer(deps, w, r, answer.FormatRaw)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rawAnswerResponse{
		Question: resp.Question,
		SQL:      resp.SQL,
		RowCount: resp.Rows,
		Data:     resp.Data,
	})
}

func handleAnswerClean(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	resp, ok := runAnswer(deps, w, r, answer.FormatClean)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cleanAnswerResponse{
		Question: resp.Question,
		SQL:      resp.SQL,
		Answer:   resp.Answer,
	})
}

func handleAnswerHTML(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	resp, ok := runAnswer(deps, w, r, answer.FormatClean)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = answerPage.Execute(w, resp)
}

func handleAnswerStream(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	resp, ok := runAnswer(deps, w, r, answer.FormatStream)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	controller := http.NewResponseController(w)
	for token := range resp.Tokens {
		if _, err := io.WriteString(w, token); err != nil {
			return
		}
		_ = controller.Flush()
	}
}

func handleAnswerVisualize(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	resp, ok := runAnswer(deps, w, r, answer.FormatVisualize)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Chart-Shape", resp.ChartShape)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.ChartPNG)
}

func runAnswer(deps Dependencies, w http.ResponseWriter, r *http.Request, format answer.Format) (answer.Response, bool) {
	if deps.Answerer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ANSWERER_NOT_CONFIGURED", "answer dependencies are not configured", false, nil)
		return answer.Response{}, false
	}

	question := r.URL.Query().Get("question")
	resp, err := deps.Answerer.Answer(r.Context(), question, format)
	if err != nil {
		writeAnswerError(r.Context(), w, err)
		return answer.Response{}, false
	}
	return resp, true
}

func writeAnswerError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, answer.ErrQuestionRequired) {
		writeError(ctx, w, http.StatusBadRequest, "QUESTION_REQUIRED", "question query parameter is required", false, nil)
		return
	}

	stage, ok := answer.StageOf(err)
	if !ok {
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", "unexpected pipeline failure", true, map[string]any{"details": err.Error()})
		return
	}

	switch stage {
	case answer.StageGeneration:
		writeError(ctx, w, http.StatusBadGateway, "GENERATION_FAILED", "sql generation failed", true, map[string]any{"details": err.Error()})
	case answer.StageExecution:
		writeError(ctx, w, http.StatusBadRequest, "EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
	case answer.StageSummarization:
		writeError(ctx, w, http.StatusBadGateway, "SUMMARIZATION_FAILED", "answer summarization failed", true, map[string]any{"details": err.Error()})
	case answer.StageRender:
		writeError(ctx, w, http.StatusUnprocessableEntity, "RENDER_FAILED", "answer rendering failed", false, map[string]any{"details": err.Error()})
	default:
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", "unexpected pipeline failure", true, map[string]any{"details": err.Error()})
	}
}
