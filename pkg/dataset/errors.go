package dataset

import "github.com/go-faster/errors"

var (
	ErrInputNotFound     = errors.New("input file not found")
	ErrNoHeader          = errors.New("missing header")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrRaggedRow         = errors.New("row width does not match header")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
