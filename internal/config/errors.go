package config

import (
	"fmt"
	"strings"
)

// FileError describes a document that could not be loaded.
type FileError struct {
	FilePath  string `json:"filePath"`
	ErrorType string `json:"errorType"` // io, parse or construct
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error types.
const (
	ErrorTypeIO        = "io"
	ErrorTypeParse     = "parse"
	ErrorTypeConstruct = "construct"
)

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %s error: %s", e.FilePath, e.ErrorType, e.Message)
}

func (e FileError) Unwrap() error { return e.Err }

// NewFileError wraps err for filePath.
func NewFileError(filePath, errorType string, err error) FileError {
	return FileError{FilePath: filePath, ErrorType: errorType, Message: err.Error(), Err: err}
}

// ErrorCollection gathers file errors so that every broken file is reported
// at once.
type ErrorCollection struct {
	Errors []FileError `json:"errors"`
}

func (c ErrorCollection) Error() string {
	switch len(c.Errors) {
	case 0:
		return "no errors"
	case 1:
		return c.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to load: %s (and %d more)",
		len(c.Errors), c.Errors[0].Error(), len(c.Errors)-1)
}

// HasErrors reports whether any error was added.
func (c *ErrorCollection) HasErrors() bool {
	return len(c.Errors) > 0
}

// Add appends an error.
func (c *ErrorCollection) Add(err FileError) {
	c.Errors = append(c.Errors, err)
}

// Err returns the collection as an error, or nil when empty.
func (c *ErrorCollection) Err() error {
	if !c.HasErrors() {
		return nil
	}
	return *c
}

// Report lists every error on its own line.
func (c *ErrorCollection) Report() string {
	if !c.HasErrors() {
		return "No errors"
	}
	var parts []string
	parts = append(parts, fmt.Sprintf("%d files failed to load:", len(c.Errors)))
	for _, err := range c.Errors {
		parts = append(parts, fmt.Sprintf("  - %s (%s): %s", err.FilePath, err.ErrorType, err.Message))
	}
	return strings.Join(parts, "\n")
}
