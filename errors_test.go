package spanjson

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomyMatchesSentinel(t *testing.T) {
	errs := []error{
		&StructuralError{Err: errors.New("bad token")},
		&ConversionError{Err: errors.New("bad value")},
		&ConfigurationError{Err: errors.New("bad setup")},
		&ResourceError{Err: errors.New("exhausted")},
		&ProgrammerError{Err: errors.New("bad usage")},
	}
	for _, err := range errs {
		assert.ErrorIs(t, err, Error, "%T must match the package-wide sentinel", err)
	}
}

func TestStructuralErrorUnwrapsToUnderlyingSentinel(t *testing.T) {
	err := &StructuralError{Err: ErrUnknownName}
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestWithPathOnlySetsPathOnce(t *testing.T) {
	err := &StructuralError{StackPath: "$.a", Err: errors.New("x")}
	got := withPath(err, "$.b")
	se, ok := got.(*StructuralError)
	if assert.True(t, ok) {
		assert.Equal(t, "$.a", se.StackPath, "withPath must not overwrite an already-set path")
	}
}
