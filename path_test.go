package spanjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuralErrorPathMatchesFailingMember(t *testing.T) {
	type inner struct {
		Count int `json:"count"`
	}
	type outer struct {
		Items []inner `json:"items"`
	}
	data := []byte(`{"items":[{"count":1},{"count":"not a number"}]}`)

	var out outer
	err := Unmarshal(data, &out)
	require := assert.New(t)
	require.Error(err)

	var cerr *ConversionError
	require.ErrorAs(err, &cerr)
	require.Equal("$.items[1].count", cerr.StackPath)
}
