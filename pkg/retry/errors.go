package retry

import "fmt"

// ParseError reports model output that is not valid JSON.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model output is not valid JSON: %v (output starts %q)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StructuralError reports JSON that parsed but is not a non-null object.
type StructuralError struct {
	Got string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("model output is a JSON %s, expected an object", e.Got)
}

// ExhaustedError is returned once every attempt has failed with a retryable
// error. Last holds the final attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("structured generation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
