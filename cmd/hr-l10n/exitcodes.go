package main

import (
	"errors"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/dataset"
	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitInput      = 4
	exitWrite      = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// readCode classifies a dataset read failure: a missing or unreadable file is
// an input error, a file that reads but is malformed is a validation error.
func readCode(err error) int {
	switch {
	case errors.Is(err, dataset.ErrInputNotFound):
		return exitInput
	case errors.Is(err, dataset.ErrNoHeader),
		errors.Is(err, dataset.ErrDuplicateColumn),
		errors.Is(err, dataset.ErrRaggedRow),
		errors.Is(err, dataset.ErrSheetNotFound),
		errors.Is(err, dataset.ErrUnsupportedFormat):
		return exitValidation
	default:
		return exitInput
	}
}

// mappingCode classifies a mapping-set load failure.
func mappingCode(err error) int {
	switch {
	case errors.Is(err, l10n.ErrUnknownVersion):
		return exitUsage
	case errors.Is(err, l10n.ErrInvalidConfig):
		return exitValidation
	default:
		return exitUsage
	}
}
