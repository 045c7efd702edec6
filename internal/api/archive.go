package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/shoptalk/shoptalk/internal/storage"
)

type archivedAnswerResponse struct {
	TraceID    string   `json:"trace_id"`
	Question   string   `json:"question"`
	SQL        string   `json:"sql"`
	Format     string   `json:"format"`
	Provider   string   `json:"provider"`
	Model      string   `json:"model"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	GenerateMs int64    `json:"generate_ms"`
	ExecuteMs  int64    `json:"execute_ms"`
	AnsweredAt string   `json:"answered_at"`
}

func handleArchivedAnswer(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "answer archiving is not enabled", false, nil)
		return
	}

	answeredAt, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD", false, nil)
		return
	}

	rec, err := deps.Archive.Fetch(r.Context(), answeredAt, r.PathValue("trace_id"))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_TRACE_ID", "trace id is not a valid object name", false, nil)
			return
		}
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "ANSWER_NOT_FOUND", "no archived answer for that date and trace id", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_READ_FAILED", "failed to read archived answer", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, archivedAnswerResponse{
		TraceID:    rec.TraceID,
		Question:   rec.Question,
		SQL:        rec.SQL,
		Format:     rec.Format,
		Provider:   rec.Provider,
		Model:      rec.Model,
		Columns:    rec.Columns,
		Rows:       rec.Rows,
		RowCount:   len(rec.Rows),
		GenerateMs: rec.GenerateDuration.Milliseconds(),
		ExecuteMs:  rec.ExecuteDuration.Milliseconds(),
		AnsweredAt: rec.AnsweredAt.UTC().Format(time.RFC3339),
	})
}
