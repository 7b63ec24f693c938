package ingest

import "fmt"

// FormatError reports an input whose format is not supported.
type FormatError struct {
	Filename string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported format for %s: %s", e.Filename, e.Reason)
}

// Kind returns the stable error kind.
func (e *FormatError) Kind() string { return "format_error" }

// DecodeError reports a supported input that could not be decoded.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind returns the stable error kind.
func (e *DecodeError) Kind() string { return "decode_error" }
