package domain

import (
	"errors"
	"fmt"
)

// ErrRetrievalUnavailable is returned when no usable context could be
// retrieved for a question. The answering model is never called in that case.
var ErrRetrievalUnavailable = errors.New("cannot answer: retrieval unavailable")

// CorpusLoadError reports a missing or malformed corpus snapshot.
type CorpusLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorpusLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load corpus %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load corpus %s: %s", e.Path, e.Reason)
}

func (e *CorpusLoadError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a query vector whose width differs from the
// corpus embedding width.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("query dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// AdapterParseError reports a single source document that could not be
// normalised. Ingestion skips the document and continues.
type AdapterParseError struct {
	Source string
	Err    error
}

func (e *AdapterParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *AdapterParseError) Unwrap() error { return e.Err }
