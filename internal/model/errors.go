package model

import "fmt"

// InsufficientDataError reports that a candle window is too small to
// analyze. It is an expected outcome, returned as a value — callers decide
// whether to skip the symbol or fetch a larger window.
type InsufficientDataError struct {
	Got  int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient candle data: got %d, need at least %d", e.Got, e.Need)
}

// IsInsufficientData reports whether err is an InsufficientDataError.
func IsInsufficientData(err error) bool {
	_, ok := err.(*InsufficientDataError)
	return ok
}
