package generatedresumes

import "errors"

var (
	// ErrNotFound indicates a requested artifact does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTemplateNotFound indicates the requested DOCX template is missing.
	ErrTemplateNotFound = errors.New("template not found")
)
