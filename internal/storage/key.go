package storage

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"time"
)

var keyComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// ErrInvalidKey marks key components that can never name a stored object.
var ErrInvalidKey = errors.New("invalid object key component")

// BuildAnswerKey places archived answers under a date-partitioned prefix so
// the bucket stays browsable and prunable by day.
func BuildAnswerKey(answeredAt time.Time, traceID string) (string, error) {
	if err := validateKeyComponent(traceID, "trace id"); err != nil {
		return "", err
	}
	ts := answeredAt.UTC()
	return path.Join(
		"answers",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s.parquet", traceID),
	), nil
}

func validateKeyComponent(value, field string) error {
	if !keyComponentPattern.MatchString(value) {
		return fmt.Errorf("%w: invalid %s: %q", ErrInvalidKey, field, value)
	}
	return nil
}
