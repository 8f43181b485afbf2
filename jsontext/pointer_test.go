// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"reflect"
	"testing"
)

func TestPointerTokens(t *testing.T) {
	tests := []struct {
		in   Pointer
		want []string
	}{
		{in: "", want: nil},
		{in: "a", want: []string{"a"}},
		{in: "~", want: []string{"~"}},
		{in: "/a", want: []string{"a"}},
		{in: "/foo/bar", want: []string{"foo", "bar"}},
		{in: "///", want: []string{"", "", ""}},
		{in: "/~0~1", want: []string{"~/"}},
	}
	for _, tt := range tests {
		got := tt.in.Tokens()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Pointer(%q).Tokens() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
