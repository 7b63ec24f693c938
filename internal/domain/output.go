package domain

// Output is the single object emitted per invocation: exactly one of Result
// or Failure is non-nil. Use NewResultOutput / NewFailureOutput to build it.
type Output struct {
	Result  *Result
	Failure *Failure
}

// NewResultOutput wraps a successful result.
func NewResultOutput(r *Result) Output {
	return Output{Result: r}
}

// NewFailureOutput wraps a failure.
func NewFailureOutput(f *Failure) Output {
	return Output{Failure: f}
}

// OK reports whether the output is a success.
func (o Output) OK() bool {
	return o.Result != nil
}

// Result is a successful analysis.
type Result struct {
	Summary    Summary
	Forecast   []ForecastPoint
	Series     Series
	Outliers   []Observation // records flagged by the z-score rule
	Warnings   []string      // non-fatal conditions (e.g. currency conversion skipped)
	FileErrors []FileError   // per-file errors that did not abort the batch
}

// Failure is an aborted analysis.
type Failure struct {
	Kind    string      // stable error kind, e.g. "insufficient_data"
	Message string      // human readable
	Details []FileError // per-file errors for batch failures
}

// FileError records why a single input could not be used.
type FileError struct {
	Filename string
	Kind     string
	Message  string
}
