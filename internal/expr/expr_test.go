package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCursor is a minimal in-memory tree satisfying the Cursor interface,
// standing in for the public cursor so the VM can be exercised without a
// concrete product backend.
type fakeCursor struct {
	fields    map[string]*fakeCursor
	elems     []*fakeCursor
	parent    *fakeCursor
	root      *fakeCursor
	ival      int64
	hasInt    bool
	sval      string
	hasString bool
	bitSize   int64
	exists    bool
}

func newFakeRoot() *fakeCursor {
	r := &fakeCursor{fields: map[string]*fakeCursor{}, exists: true}
	r.root = r
	return r
}

func (c *fakeCursor) addIntField(name string, v int64) {
	f := &fakeCursor{fields: map[string]*fakeCursor{}, ival: v, hasInt: true, exists: true, parent: c, root: c.root}
	c.fields[name] = f
}

func (c *fakeCursor) addRecordField(name string) *fakeCursor {
	f := &fakeCursor{fields: map[string]*fakeCursor{}, exists: true, parent: c, root: c.root}
	c.fields[name] = f
	return f
}

func (c *fakeCursor) Clone() Cursor {
	cp := *c
	return &cp
}

func (c *fakeCursor) GotoRoot() error {
	*c = *c.root
	return nil
}

func (c *fakeCursor) GotoParent() error {
	if c.parent == nil {
		return errors.New("no parent")
	}
	*c = *c.parent
	return nil
}

func (c *fakeCursor) GotoField(name string) error {
	f, ok := c.fields[name]
	if !ok {
		return errors.New("no such field: " + name)
	}
	*c = *f
	return nil
}

func (c *fakeCursor) GotoArrayElement(indices []int64) error {
	if len(indices) != 1 || indices[0] < 0 || int(indices[0]) >= len(c.elems) {
		return errors.New("index out of range")
	}
	*c = *c.elems[indices[0]]
	return nil
}

func (c *fakeCursor) NumElements() (int64, error) {
	if c.elems != nil {
		return int64(len(c.elems)), nil
	}
	return 1, nil
}

func (c *fakeCursor) ArrayDim(dim int) (int64, error) {
	if dim == 0 {
		return int64(len(c.elems)), nil
	}
	return 0, errors.New("dimension out of range")
}

func (c *fakeCursor) ReadInt() (int64, error) {
	if c.hasInt {
		return c.ival, nil
	}
	return 0, errors.New("not an integer")
}

func (c *fakeCursor) ReadFloat() (float64, error) {
	if c.hasInt {
		return float64(c.ival), nil
	}
	return 0, errors.New("not numeric")
}

func (c *fakeCursor) ReadString() (string, error) {
	if c.hasString {
		return c.sval, nil
	}
	return "", errors.New("not a string")
}

func (c *fakeCursor) BitSize() (int64, error) { return c.bitSize, nil }
func (c *fakeCursor) Exists() bool            { return c.exists }

func mustParse(t *testing.T, src string) *Expr {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err)
	return e
}

func TestEvaluateArithmeticPrecedence(t *testing.T) {
	e := mustParse(t, "1 + 2 * 3")
	v, err := EvaluateInteger(e, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestEvaluateFloatPromotion(t *testing.T) {
	e := mustParse(t, "1.5 + 2")
	v, err := EvaluateFloat(e, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
}

func TestEvaluateBooleanShortCircuit(t *testing.T) {
	e := mustParse(t, "3 < 5 && 5 < 10")
	v, err := EvaluateBoolean(e, nil)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestEvaluateStringEquality(t *testing.T) {
	e := mustParse(t, `"abc" == "abc"`)
	v, err := EvaluateBoolean(e, nil)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	e := mustParse(t, "1 / 0")
	_, err := EvaluateInteger(e, nil)
	assert.Error(t, err)
}

func TestEvaluateFieldReference(t *testing.T) {
	root := newFakeRoot()
	root.addIntField("x", 42)
	e := mustParse(t, "x")
	v, err := EvaluateInteger(e, root.Clone())
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestEvaluateDispatchesByRuntimeKind(t *testing.T) {
	root := newFakeRoot()
	root.addIntField("x", 7)
	e := mustParse(t, "x + 1")
	v, kind, err := Evaluate(e, root.Clone())
	require.NoError(t, err)
	assert.Equal(t, KindInteger, kind)
	assert.Equal(t, int64(8), v)
}

func TestIsConstant(t *testing.T) {
	assert.True(t, mustParse(t, "1 + 2 * 3").IsConstant())
	assert.False(t, mustParse(t, "x + 1").IsConstant())
	assert.False(t, mustParse(t, "length(x)").IsConstant())
}

func TestIsFastAllowsLengthOfFastArgument(t *testing.T) {
	assert.True(t, mustParse(t, "length(x)").IsFast())
}

func TestIsFastRejectsArbitraryFunctionCalls(t *testing.T) {
	assert.False(t, mustParse(t, "abs(x)").IsFast())
}

func TestEvaluateIntegerDereferencesBareFieldPath(t *testing.T) {
	// A path expression like "a.b" naturally evaluates to a node
	// position; EvaluateInteger must read the scalar stored there
	// rather than reject it as a non-integer value.
	root := newFakeRoot()
	root.addIntField("a", 99)
	e := mustParse(t, "a")
	v, err := EvaluateInteger(e, root.Clone())
	require.NoError(t, err)
	assert.Equal(t, int64(99), v)
}

func TestEvaluateReturnsScalarForLeafFieldNode(t *testing.T) {
	root := newFakeRoot()
	root.addIntField("a", 5)
	e := mustParse(t, "a")
	v, kind, err := Evaluate(e, root.Clone())
	require.NoError(t, err)
	assert.Equal(t, KindInteger, kind)
	assert.Equal(t, int64(5), v)
}

func TestEvaluateReturnsNodeForStructuralPosition(t *testing.T) {
	// Navigating to a record/array position (not backed by any scalar
	// read) has nothing to dereference, so it stays a node.
	root := newFakeRoot()
	root.addRecordField("rec")
	e := mustParse(t, "rec")
	v, kind, err := Evaluate(e, root.Clone())
	require.NoError(t, err)
	assert.Equal(t, KindNode, kind)
	_, ok := v.(Cursor)
	assert.True(t, ok)
}

func TestExistsCallSwallowsNavigationError(t *testing.T) {
	root := newFakeRoot()
	e := mustParse(t, "exists(missing)")
	v, err := EvaluateBoolean(e, root.Clone())
	require.NoError(t, err)
	assert.False(t, v)
}
