package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shoptalk/shoptalk/internal/archive"
	"github.com/shoptalk/shoptalk/internal/nl2sql"
	"github.com/shoptalk/shoptalk/internal/observability"
	"github.com/shoptalk/shoptalk/internal/render"
	"github.com/shoptalk/shoptalk/internal/warehouse"
)

// Recorder persists answered questions. Failures are logged and never
// surfaced to the client.
type Recorder interface {
	Archive(ctx context.Context, rec archive.Record) error
}

type Config struct {
	Translator nl2sql.Translator
	Summarizer nl2sql.Summarizer
	Engine     warehouse.Engine
	SchemaText string
	Dialect    string
	Recorder   Recorder
	Logger     *slog.Logger
}

type Service struct {
	translator nl2sql.Translator
	summarizer nl2sql.Summarizer
	engine     warehouse.Engine
	schemaText string
	dialect    string
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("warehouse engine is required")
	}
	if strings.TrimSpace(cfg.SchemaText) == "" {
		return nil, fmt.Errorf("schema text is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		translator: cfg.Translator,
		summarizer: cfg.Summarizer,
		engine:     cfg.Engine,
		schemaText: cfg.SchemaText,
		dialect:    cfg.Dialect,
		recorder:   cfg.Recorder,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Answer runs the full pipeline for one question. The pipeline is
// all-or-nothing: any stage failure aborts the request with a StageError
// naming the stage.
func (s *Service) Answer(ctx context.Context, question string, format Format) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		observability.ObserveQuestion(string(format), "rejected")
		return Response{}, ErrQuestionRequired
	}
	switch format {
	case FormatRaw, FormatStream, FormatClean, FormatVisualize:
	default:
		observability.ObserveQuestion(string(format), "rejected")
		return Response{}, fmt.Errorf("unknown response format %q", format)
	}

	generateStart := s.now()
	translated, err := s.translator.Translate(ctx, nl2sql.Request{
		Question: question,
		Schema:   s.schemaText,
		Dialect:  s.dialect,
	})
	generateDuration := time.Since(generateStart)
	observability.ObserveLLMCall("translate", generateDuration)
	if err != nil {
		observability.ObserveQuestion(string(format), "error")
		return Response{}, &StageError{Stage: StageGeneration, Err: err}
	}
	s.logger.Debug("generated sql", "question", question, "sql", translated.SQL, "model", translated.Model)

	rs, err := s.engine.Execute(ctx, warehouse.Request{SQL: translated.SQL})
	if err != nil {
		observability.ObserveQuestion(string(format), "error")
		return Response{}, &StageError{Stage: StageExecution, Err: err}
	}
	observability.ObserveWarehouseQuery(rs.RowCount(), rs.Duration)

	resp := Response{Question: question, SQL: translated.SQL, Rows: rs.RowCount()}
	switch format {
	case FormatRaw:
		data, err := render.RowObjects(rs)
		if err != nil {
			observability.ObserveQuestion(string(format), "error")
			return Response{}, &StageError{Stage: StageRender, Err: err}
		}
		resp.Data = data
	case FormatClean, FormatStream:
		summarizeStart := s.now()
		prose, err := s.summarizer.Summarize(ctx, nl2sql.SummaryRequest{
			Question: question,
			Columns:  rs.Columns,
			Rows:     rs.Rows,
		})
		observability.ObserveLLMCall("summarize", time.Since(summarizeStart))
		if err != nil {
			observability.ObserveQuestion(string(format), "error")
			return Response{}, &StageError{Stage: StageSummarization, Err: err}
		}
		if format == FormatClean {
			resp.Answer = prose
		} else {
			resp.Tokens = render.Tokens(translated.SQL, prose)
		}
	case FormatVisualize:
		chartResult, err := render.Chart(question, rs)
		if err != nil {
			observability.ObserveQuestion(string(format), "error")
			return Response{}, &StageError{Stage: StageRender, Err: err}
		}
		observability.ObserveChartRender(chartResult.Shape)
		resp.ChartPNG = chartResult.PNG
		resp.ChartShape = chartResult.Shape
	}

	observability.ObserveQuestion(string(format), "ok")
	s.record(ctx, question, format, translated, rs, generateDuration)
	return resp, nil
}

func (s *Service) record(ctx context.Context, question string, format Format, translated nl2sql.Result, rs warehouse.ResultSet, generateDuration time.Duration) {
	if s.recorder == nil {
		return
	}
	traceID := observability.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = fmt.Sprintf("answer-%d", s.now().UnixNano())
	}
	rec := archive.Record{
		TraceID:          traceID,
		Question:         question,
		SQL:              translated.SQL,
		Format:           string(format),
		Provider:         translated.Provider,
		Model:            translated.Model,
		Columns:          rs.Columns,
		Rows:             rs.Rows,
		GenerateDuration: generateDuration,
		ExecuteDuration:  rs.Duration,
		AnsweredAt:       s.now(),
	}
	if err := s.recorder.Archive(ctx, rec); err != nil {
		observability.ObserveArchiveWrite("error")
		s.logger.Warn("archive answer failed", "trace_id", traceID, "error", err)
		return
	}
	observability.ObserveArchiveWrite("ok")
}
