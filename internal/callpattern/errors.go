package callpattern

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// ErrMissingColumn is wrapped by every input-shape error
var ErrMissingColumn = errors.New("missing column")

// Kind classifies a report failure for the caller
type Kind int

const (
	KindBadInput Kind = iota + 1
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadInput:
		return "bad_input"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ReportError is the single domain error returned by Generate. It names the
// stage (and metric, where one applies) that failed.
type ReportError struct {
	Stage  string
	Metric string
	Kind   Kind
	Err    error
}

func (e *ReportError) Error() string {
	origin := e.Stage
	if e.Metric != "" {
		origin += "/" + e.Metric
	}
	return fmt.Sprintf("%s failed: %v", origin, e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status
func (e *ReportError) StatusCode() int {
	if e.Kind == KindBadInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func stageError(stage, metric string, err error) *ReportError {
	var re *ReportError
	if errors.As(err, &re) {
		return re
	}
	kind := KindInternal
	if errors.Is(err, ErrMissingColumn) {
		kind = KindBadInput
	}
	return &ReportError{Stage: stage, Metric: metric, Kind: kind, Err: err}
}

// requireColumns fails with ErrMissingColumn on the first absent column
func requireColumns(rs types.RecordSet, cols ...types.Column) error {
	if c, missing := rs.Columns.Missing(cols...); missing {
		return fmt.Errorf("%w %q", ErrMissingColumn, c)
	}
	return nil
}
