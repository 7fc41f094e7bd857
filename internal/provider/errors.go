package provider

import "fmt"

// FetchError is returned when a document could not be retrieved: transport
// failure, non-success status, or an undecodable body. It is never retried
// by the fetcher itself.
type FetchError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError means an expected structural marker was absent from a
// fetched document. Extractors return it instead of a partially populated
// record.
type ExtractionError struct {
	Page  string
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: field %q: %v", e.Page, e.Field, e.Err)
	}
	return fmt.Sprintf("extract %s: field %q not found", e.Page, e.Field)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Missing is shorthand for an ExtractionError with no underlying cause.
func Missing(page, field string) error {
	return &ExtractionError{Page: page, Field: field}
}

// Malformed wraps a parse failure of a located field.
func Malformed(page, field string, err error) error {
	return &ExtractionError{Page: page, Field: field, Err: err}
}
