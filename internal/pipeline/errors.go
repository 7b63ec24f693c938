package pipeline

import (
	"errors"
	"fmt"

	"sales-forecast-lab/internal/domain"
)

// kinded is implemented by every stage error.
type kinded interface {
	Kind() string
}

// KindInternal classifies errors that carry no stage kind.
const KindInternal = "internal_error"

// ErrorKind returns the stable kind of err, or KindInternal.
func ErrorKind(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

func fileError(filename string, err error) domain.FileError {
	return domain.FileError{Filename: filename, Kind: ErrorKind(err), Message: err.Error()}
}

func failure(err error, details []domain.FileError) domain.Output {
	return domain.NewFailureOutput(&domain.Failure{
		Kind:    ErrorKind(err),
		Message: err.Error(),
		Details: details,
	})
}

// noUsableFiles is the failure of a batch in which every file was rejected.
// The batch takes the kind of its first rejected file.
func noUsableFiles(details []domain.FileError) domain.Output {
	if len(details) == 0 {
		return failure(&InsufficientDataError{}, nil)
	}
	return domain.NewFailureOutput(&domain.Failure{
		Kind:    details[0].Kind,
		Message: fmt.Sprintf("none of %d files yielded usable data", len(details)),
		Details: details,
	})
}
