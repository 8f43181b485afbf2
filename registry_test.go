package spanjson

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverterRegistryResolvesBuiltinSimple(t *testing.T) {
	r := newConverterRegistry()
	c, err := r.GetConverter(reflect.TypeFor[string]())
	require.NoError(t, err)
	assert.IsType(t, stringConverter{}, c)
}

func TestConverterRegistryUserPrecedesBuiltinSimple(t *testing.T) {
	r := newConverterRegistry()
	require.NoError(t, r.RegisterConverter(stubIntConverter{}))
	c, err := r.GetConverter(reflect.TypeFor[int]())
	require.NoError(t, err)
	assert.IsType(t, stubIntConverter{}, c)
}

func TestConverterRegistryRejectsRegisterAfterFreeze(t *testing.T) {
	r := newConverterRegistry()
	r.freeze()
	err := r.RegisterConverter(stubIntConverter{})
	require.Error(t, err)
	var perr *ProgrammerError
	assert.ErrorAs(t, err, &perr)
}

func TestConverterRegistryUnknownTypeErrors(t *testing.T) {
	r := newConverterRegistry()
	_, err := r.GetConverter(reflect.TypeFor[chan int]())
	require.Error(t, err)
	var cerr *ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
