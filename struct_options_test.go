package spanjson

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerProps struct {
	City string `json:"city"`
}

type outerProps struct {
	Name  string     `json:"Name,nocase"`
	Inner innerProps `json:",inline"`
}

func TestClassInfoLookupCaseInsensitiveAndNoCase(t *testing.T) {
	ci, err := getClassInfo(reflect.TypeFor[outerProps]())
	require.NoError(t, err)

	p := ci.Lookup([]byte("name"), false)
	require.NotNil(t, p, "nocase-tagged member should match regardless of caller setting")
	assert.Equal(t, "Name", p.Name)

	p = ci.Lookup([]byte("CITY"), true)
	require.NotNil(t, p, "inlined embedded struct's member should be hoisted into the parent table")
	assert.Equal(t, "city", p.Name)

	assert.Nil(t, ci.Lookup([]byte("CITY"), false))
}

func TestClassInfoLookupRecentCacheHit(t *testing.T) {
	ci, err := getClassInfo(reflect.TypeFor[outerProps]())
	require.NoError(t, err)

	first := ci.Lookup([]byte("name"), false)
	require.NotNil(t, first)
	second := ci.Lookup([]byte("name"), false)
	require.NotNil(t, second)
	assert.Same(t, first, second, "repeated lookup of the same name should return the identical PropertyInfo")
}

func TestMakeClassInfoRejectsNonStruct(t *testing.T) {
	_, err := getClassInfo(reflect.TypeFor[int]())
	require.Error(t, err)
	var cerr *ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestMakeClassInfoRejectsDuplicateExtension(t *testing.T) {
	type twoExtensions struct {
		A map[string]string `json:",unknown"`
		B map[string]string `json:",unknown"`
	}
	_, err := makeClassInfo(reflect.TypeFor[twoExtensions]())
	require.Error(t, err)
	var cerr *ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
