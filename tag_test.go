package spanjson

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldTag(t *testing.T, v any, name string) (memberTag, error) {
	sf, ok := reflect.TypeOf(v).FieldByName(name)
	require.True(t, ok)
	return parseMemberTag(sf)
}

func TestParseMemberTagOptions(t *testing.T) {
	type s struct {
		A string `json:"a,omitempty,nocase"`
		B int    `json:"b,omitzero,string"`
		C string `json:",unknown"`
		D string `json:"-"`
		E string
	}

	tag, err := fieldTag(t, s{}, "A")
	require.NoError(t, err)
	assert.Equal(t, "a", tag.name)
	assert.True(t, tag.omitempty)
	assert.True(t, tag.nocase)

	tag, err = fieldTag(t, s{}, "B")
	require.NoError(t, err)
	assert.True(t, tag.omitzero)
	assert.True(t, tag.string)

	tag, err = fieldTag(t, s{}, "C")
	require.NoError(t, err)
	assert.True(t, tag.unknown)
	assert.True(t, tag.inline, "an `unknown` member is always implicitly inline")

	_, err = fieldTag(t, s{}, "D")
	assert.ErrorIs(t, err, errIgnoredMember)

	tag, err = fieldTag(t, s{}, "E")
	require.NoError(t, err)
	assert.Equal(t, "E", tag.name, "an untagged exported field defaults to its Go name")
}

func TestParseMemberTagRejectsMisspelledOption(t *testing.T) {
	type s struct {
		A string `json:"a,omitEmpty"`
	}
	_, err := fieldTag(t, s{}, "A")
	require.Error(t, err)
	var cerr *ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestParseMemberTagFormatOption(t *testing.T) {
	type s struct {
		A string `json:"a,format:RFC3339"`
	}
	tag, err := fieldTag(t, s{}, "A")
	require.NoError(t, err)
	assert.Equal(t, "RFC3339", tag.format)
}
