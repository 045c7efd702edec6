// Package answer runs the question-to-answer pipeline: translate a natural
// language question to SQL, execute it against the warehouse, and shape the
// result for one of the response formats.
package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// Format selects how an answered question is rendered back to the caller.
type Format string

const (
	// FormatRaw returns the executed rows as ordered JSON objects without a
	// second model call.
	FormatRaw Format = "raw"
	// FormatStream yields the generated SQL followed by the prose answer as
	// a lazy token sequence.
	FormatStream Format = "stream"
	// FormatClean returns a single prose answer summarizing the rows.
	FormatClean Format = "clean"
	// FormatVisualize returns a PNG chart of the rows.
	FormatVisualize Format = "visualize"
)

// ErrQuestionRequired rejects blank questions before any model call.
var ErrQuestionRequired = errors.New("question is required")

// Stage names the pipeline step a failure came from.
type Stage string

const (
	StageGeneration    Stage = "generation"
	StageExecution     Stage = "execution"
	StageSummarization Stage = "summarization"
	StageRender        Stage = "render"
)

// StageError wraps a pipeline failure with the stage that produced it, so
// the HTTP layer can map each stage to its own error code and status.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf reports the pipeline stage an error belongs to, if any.
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

// Response carries the answered question. Exactly one of Data, Answer,
// Tokens, or ChartPNG is populated, matching the requested format.
type Response struct {
	Question   string
	SQL        string
	Answer     string
	Data       json.RawMessage
	Tokens     iter.Seq[string]
	ChartPNG   []byte
	ChartShape string
	Rows       int
}
