package port

import "ragqa/internal/domain"

// SourceAdapter normalises one raw source file into records.
type SourceAdapter interface {
	// Name identifies the adapter in logs and results.
	Name() string

	// Parse converts the file contents into zero or more records.
	// Malformed input is reported as *domain.AdapterParseError.
	Parse(name string, data []byte) ([]domain.Record, error)
}
