package engineerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageWithoutDetail(t *testing.T) {
	err := &Error{Kind: KindPage}
	assert.Equal(t, "page error", err.Error())
}

func TestErrorMessageWithDetail(t *testing.T) {
	err := New(KindSchema, "table %q already exists", "Person")
	assert.Equal(t, "schema error: table \"Person\" already exists", err.Error())
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	underlying := fmt.Errorf("disk full")
	err := Wrap(KindStorage, underlying, "writing page %d", 7)

	assert.Equal(t, "storage error: writing page 7", err.Error())
	assert.Same(t, underlying, errors.Unwrap(err))
	assert.ErrorIs(t, err, underlying)
}

func TestIsMatchesKind(t *testing.T) {
	err := New(KindChecksum, "header checksum mismatch")
	assert.True(t, Is(err, KindChecksum))
	assert.False(t, Is(err, KindWAL))
}

func TestIsFalseForNonEngineError(t *testing.T) {
	assert.False(t, Is(fmt.Errorf("plain error"), KindUnknown))
}

func TestDivisionByZeroSentinelIsStable(t *testing.T) {
	assert.True(t, errors.Is(ErrDivisionByZero, ErrDivisionByZero))
	assert.True(t, Is(ErrDivisionByZero, KindDivisionByZero))
}

func TestKindStringCoversKnownKinds(t *testing.T) {
	cases := map[Kind]string{
		KindParse:                   "parse error",
		KindType:                    "type error",
		KindConstraintViolation:     "constraint violation",
		KindCorruptedDatabase:       "corrupted database",
		KindQuotedNewlineInParallel: "quoted newline in parallel csv mode",
		KindNullValue:               "null value error",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestKindStringUnknownDefault(t *testing.T) {
	assert.Equal(t, "unknown error", Kind(9999).String())
}

func TestErrorSupportsErrorsUnwrapChain(t *testing.T) {
	inner := New(KindImport, "bad row")
	outer := Wrap(KindExecution, inner, "import failed")

	unwrapped, ok := errors.Unwrap(outer).(*Error)
	assert.True(t, ok)
	assert.Equal(t, KindImport, unwrapped.Kind)
}
