package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the categories surfaced to callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindParse
	KindSchema
	KindType
	KindConstraintViolation
	KindExecution
	KindStorage
	KindPage
	KindBufferPool
	KindWAL
	KindCatalog
	KindChecksum
	KindCorruptedDatabase
	KindInvalidDatabaseFile
	KindUnsupportedVersion
	KindReferentialIntegrity
	KindImport
	KindValidation
	KindRelTableLoad
	KindRelTableCorrupted
	KindQuotedNewlineInParallel
	KindMemoryLimitExceeded
	KindQueryTimeout
	KindInvalidExpression
	KindUnsupportedOperation
	KindDivisionByZero
	KindNullValue
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindSchema:
		return "schema error"
	case KindType:
		return "type error"
	case KindConstraintViolation:
		return "constraint violation"
	case KindExecution:
		return "execution error"
	case KindStorage:
		return "storage error"
	case KindPage:
		return "page error"
	case KindBufferPool:
		return "buffer pool error"
	case KindWAL:
		return "wal error"
	case KindCatalog:
		return "catalog error"
	case KindChecksum:
		return "checksum mismatch"
	case KindCorruptedDatabase:
		return "corrupted database"
	case KindInvalidDatabaseFile:
		return "invalid database file"
	case KindUnsupportedVersion:
		return "unsupported database version"
	case KindReferentialIntegrity:
		return "referential integrity error"
	case KindImport:
		return "import error"
	case KindValidation:
		return "validation error"
	case KindRelTableLoad:
		return "relationship table load error"
	case KindRelTableCorrupted:
		return "relationship table corrupted"
	case KindQuotedNewlineInParallel:
		return "quoted newline in parallel csv mode"
	case KindMemoryLimitExceeded:
		return "memory limit exceeded"
	case KindQueryTimeout:
		return "query timeout"
	case KindInvalidExpression:
		return "invalid expression"
	case KindUnsupportedOperation:
		return "unsupported operation"
	case KindDivisionByZero:
		return "division by zero"
	case KindNullValue:
		return "null value error"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type produced by ruzudb packages.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that wraps an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinel errors for conditions checked directly by callers without
// needing a formatted message.
var (
	ErrDivisionByZero = &Error{Kind: KindDivisionByZero}
)
