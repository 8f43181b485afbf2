// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spanjson

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanjson/spanjson/jsontext"
)

type widget struct {
	Name     string            `json:"name"`
	Count    int               `json:"count,omitzero"`
	Tags     []string          `json:"tags,omitempty"`
	Created  time.Time         `json:"created"`
	Lifetime time.Duration     `json:"lifetime"`
	ID       uuid.UUID         `json:"id"`
	Extra    map[string]string `json:",unknown"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := widget{
		Name:     "bolt",
		Count:    3,
		Tags:     []string{"hardware", "steel"},
		Created:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Lifetime: 90 * time.Second,
		ID:       uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef"),
	}

	data, err := Marshal(&in)
	require.NoError(t, err)

	var out widget
	require.NoError(t, Unmarshal(data, &out))

	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalOmitsZeroAndEmpty(t *testing.T) {
	in := widget{Name: "nut"}
	data, err := Marshal(&in)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"count"`)
	assert.NotContains(t, string(data), `"tags"`)
}

func TestUnmarshalUnknownMemberGoesToExtension(t *testing.T) {
	data := []byte(`{"name":"washer","created":"2024-01-02T03:04:05Z","id":"01234567-89ab-cdef-0123-456789abcdef","color":"red"}`)
	var out widget
	require.NoError(t, Unmarshal(data, &out))
	require.NotNil(t, out.Extra)
	assert.Equal(t, `"red"`, out.Extra["color"])
}

func TestUnmarshalRejectUnknownMembers(t *testing.T) {
	type strict struct {
		Name string `json:"name"`
	}
	data := []byte(`{"name":"x","extra":1}`)
	var out strict
	err := UnmarshalOptions{RejectUnknownMembers: true}.Unmarshal(NewSerializerOptions(), data, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestMarshalStringifyNumbers(t *testing.T) {
	type payload struct {
		N int64 `json:"n"`
	}
	data, err := MarshalOptions{StringifyNumbers: true}.Marshal(NewSerializerOptions(), &payload{N: 42})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"n":"42"`)

	var out payload
	require.NoError(t, UnmarshalOptions{StringifyNumbers: true}.Unmarshal(NewSerializerOptions(), data, &out))
	assert.Equal(t, int64(42), out.N)
}

func TestUnmarshalNonPointerIsProgrammerError(t *testing.T) {
	var out widget
	err := Unmarshal([]byte(`{}`), out)
	require.Error(t, err)
	var perr *ProgrammerError
	assert.ErrorAs(t, err, &perr)
}

func TestMarshalFullStreams(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarshalFull(&buf, map[string]int{"a": 1}))
	assert.Equal(t, `{"a":1}`, buf.String())
}

func TestConverterRegistryUserOverrideWins(t *testing.T) {
	opts := NewSerializerOptions()
	require.NoError(t, opts.RegisterConverter(stubIntConverter{}))

	data, err := MarshalOptions{}.Marshal(opts, 7)
	require.NoError(t, err)
	assert.Equal(t, `"stub"`, string(data))
}

type stubIntConverter struct{}

func (stubIntConverter) CanConvert(t reflect.Type) bool { return t.Kind() == reflect.Int }
func (stubIntConverter) TryWrite(stack *WriteStack, t reflect.Type, in addressableValue) (bool, error) {
	if err := stack.Encoder.WriteToken(jsontext.String("stub")); err != nil {
		return true, err
	}
	return true, nil
}
func (stubIntConverter) TryRead(stack *ReadStack, t reflect.Type, out addressableValue) (bool, error) {
	return true, nil
}
