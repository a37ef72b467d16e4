package checksum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/checksum"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

func TestBuildLocalContainerEmitsZeroAndEmptyMap(t *testing.T) {
	b := il.NewBuilder("")
	checksum.BuildLocalContainer(b)
	p := b.Build()

	require.Len(t, p.Instructions, 3)
	assert.Equal(t, il.OpLoadInt, p.Instructions[0].Op)
	assert.EqualValues(t, int64(0), p.Instructions[0].Attrs["value"])
	assert.Equal(t, il.OpCreateObject, p.Instructions[1].Op)
	assert.Equal(t, il.OpCreateArray, p.Instructions[2].Op)
}

func TestSeedValueMatchesWirePreambleConstant(t *testing.T) {
	assert.EqualValues(t, 11206928, checksum.SeedValue)
}
