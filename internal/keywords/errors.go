package keywords

import (
	"errors"
	"fmt"
)

// ErrUnknownKeyword is returned for names no keyword is registered under.
var ErrUnknownKeyword = errors.New("no keyword with that name")

// ArgumentError reports a keyword argument that could not be converted or
// bound. It is raised before the keyword has any side effect.
type ArgumentError struct {
	Keyword  string
	Argument string
	Value    string
	Err      error
}

func (e *ArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: argument '%s': %v", e.Keyword, e.Argument, e.Err)
	}
	return fmt.Sprintf("%s: argument '%s' got '%s': %v", e.Keyword, e.Argument, e.Value, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
