package catalog

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes for catalog loading.
const (
	ErrCodeNotFound         = "C001" // Path not found
	ErrCodeNoFiles          = "C002" // No CUE files found
	ErrCodeLoadFailed       = "C003" // CUE load failed
	ErrCodeBuildFailed      = "C004" // CUE build or schema check failed
	ErrCodeInvalid          = "C005" // Declaration is malformed
	ErrCodeDuplicate        = "C006" // Type declared twice
	ErrCodeUnknownComponent = "C007" // Reference to an undeclared component
)

// LoadError is a catalog loading failure, positioned in the CUE source when
// the position is known.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// fromCUE converts the first CUE error to a LoadError carrying its position.
func fromCUE(code string, err error) *LoadError {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
