package lift_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/lift"
)

func TestSourceRendersLoadInstructionsAsLetStatements(t *testing.T) {
	b := il.NewBuilder("")
	b.LoadInt(42)
	b.LoadBool(true)
	b.LoadString("hi")
	p := b.Build()

	out := lift.Source(p)
	assert.Contains(t, out, "= 42;")
	assert.Contains(t, out, "= true;")
	assert.Contains(t, out, `= "hi";`)
}

func TestSourceRendersIfWithBothArms(t *testing.T) {
	b := il.NewBuilder("")
	cond := b.LoadBool(true)
	b.BuildIf(cond, func(c *il.BuilderContext) {
		c.LoadInt(1)
	}, func(c *il.BuilderContext) {
		c.LoadInt(2)
	})
	p := b.Build()

	out := lift.Source(p)
	require.Contains(t, out, "if (")
	require.Contains(t, out, "else {")
	ifIdx := strings.Index(out, "if (")
	elseIdx := strings.Index(out, "else {")
	assert.Greater(t, elseIdx, ifIdx)
}

func TestSourceRendersIfWithoutElseOmitsElseKeyword(t *testing.T) {
	b := il.NewBuilder("")
	cond := b.LoadBool(false)
	b.BuildIf(cond, func(c *il.BuilderContext) {
		c.LoadInt(1)
	}, nil)
	p := b.Build()

	out := lift.Source(p)
	assert.NotContains(t, out, "else")
}

func TestSourceRendersRepeatLoopAsForLoopWithTripCount(t *testing.T) {
	b := il.NewBuilder("")
	b.BuildRepeatLoop(7, func(c *il.BuilderContext, _ il.Variable) {
		c.LoadInt(1)
	})
	p := b.Build()

	out := lift.Source(p)
	assert.Contains(t, out, "for (let ")
	assert.Contains(t, out, "< 7;")
}

func TestSourceRendersPlainFunctionWithNameAndParams(t *testing.T) {
	b := il.NewBuilder("")
	b.BuildPlainFunction("f", []string{"x", "y"}, func(c *il.BuilderContext, params []il.Variable) {
		c.DoReturn(&params[0])
	})
	p := b.Build()

	out := lift.Source(p)
	assert.Contains(t, out, "function f(")
	assert.Contains(t, out, "return ")
}

func TestSourceRendersTryCatchFinally(t *testing.T) {
	b := il.NewBuilder("")
	b.BuildTryCatchFinally(func(c *il.BuilderContext) {
		c.LoadInt(1)
	}, func(c *il.BuilderContext) {
		c.LoadInt(2)
	}, func(c *il.BuilderContext) {
		c.LoadInt(3)
	})
	p := b.Build()

	out := lift.Source(p)
	require := assert.New(t)
	tryIdx := strings.Index(out, "try {")
	catchIdx := strings.Index(out, "catch (")
	finallyIdx := strings.Index(out, "finally {")
	require.Greater(tryIdx, -1)
	require.Greater(catchIdx, tryIdx)
	require.Greater(finallyIdx, catchIdx)
}

func TestSourceRendersChecksumContainerLoadAsFixedName(t *testing.T) {
	b := il.NewBuilder("")
	b.LoadChecksumContainer()
	p := b.Build()

	out := lift.Source(p)
	assert.Contains(t, out, "= __compat_checksum__;")
}

func TestSourceRendersUpdateElementAsCompoundAssignment(t *testing.T) {
	b := il.NewBuilder("")
	container := b.LoadChecksumContainer()
	one := b.LoadInt(1)
	b.UpdateElement(container, 0, "Add", one)
	p := b.Build()

	out := lift.Source(p)
	assert.Contains(t, out, "[0] += ")
}

func TestSourceRendersBinaryAndCompareOperators(t *testing.T) {
	b := il.NewBuilder("")
	a := b.LoadInt(1)
	c := b.LoadInt(2)
	b.Binary("Add", a, c)
	b.Compare("LessThan", a, c)
	p := b.Build()

	out := lift.Source(p)
	assert.Contains(t, out, " + ")
	assert.Contains(t, out, " < ")
}

func TestSourceRendersCallFunctionWithArguments(t *testing.T) {
	b := il.NewBuilder("")
	fn := b.BuildPlainFunction("f", []string{"x"}, func(c *il.BuilderContext, params []il.Variable) {
		c.DoReturn(&params[0])
	})
	one := b.LoadInt(1)
	b.CallFunction(fn, one)
	p := b.Build()

	out := lift.Source(p)
	assert.Contains(t, out, "f(v")
}

func TestSourceSkipsInstructionsWithoutStandaloneSurface(t *testing.T) {
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpNop},
		{Op: il.OpLoadInt, Outputs: []il.Variable{{Name: "x", ID: 1}}, Attrs: map[string]interface{}{"value": int64(9)}},
	})

	out := lift.Source(p)
	assert.Contains(t, out, "= 9;")
}
