package prompt

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound matches any *TemplateNotFoundError under errors.Is.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateNotFoundError reports a render request for a context/language pair
// that has no registered template. It is a caller configuration error.
type TemplateNotFoundError struct {
	Context  Context
	Language Language
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: context=%q language=%q", e.Context, e.Language)
}

// Is implements error comparison for errors.Is
func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}
