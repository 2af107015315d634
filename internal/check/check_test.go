package check

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coda-go/coda/internal/typegraph"
)

// checkNode is a hand-built tree satisfying the Cursor interface,
// standing in for a concrete backend cursor so the traversal can be
// exercised without an open product.
type checkNode struct {
	name       string
	class      typegraph.Class
	exists     bool
	bitSizeErr error

	fields   []*checkNode
	elements []*checkNode
	attrs    *checkNode

	numElements    int64
	numElementsErr error
	fast           bool

	readIntVal    int64
	readIntErr    error
	readDoubleVal float64
	readDoubleErr error
	readStringVal string
	readStringErr error
}

func record(name string, fields ...*checkNode) *checkNode {
	return &checkNode{name: name, class: typegraph.ClassRecord, exists: true, fields: fields, fast: true}
}

func intLeaf(name string, v int64) *checkNode {
	return &checkNode{name: name, class: typegraph.ClassInteger, exists: true, readIntVal: v, fast: true}
}

type checkCursor struct {
	node     *checkNode
	siblings []*checkNode
	idx      int
}

func newCheckCursor(n *checkNode) *checkCursor { return &checkCursor{node: n} }

func (c *checkCursor) Clone() Cursor {
	cp := *c
	return &cp
}

func (c *checkCursor) Exists() bool             { return c.node.exists }
func (c *checkCursor) Class() typegraph.Class    { return c.node.class }
func (c *checkCursor) Name() string              { return c.node.name }
func (c *checkCursor) IsFastSizeExpr() bool      { return c.node.fast }
func (c *checkCursor) GetBitSize() (int64, error) {
	if c.node.bitSizeErr != nil {
		return 0, c.node.bitSizeErr
	}
	return 8, nil
}

func (c *checkCursor) GetNumElements() (int64, error) {
	if c.node.numElementsErr != nil {
		return 0, c.node.numElementsErr
	}
	return c.node.numElements, nil
}

func (c *checkCursor) GotoFirstRecordField() error {
	if len(c.node.fields) == 0 {
		return errors.New("no fields")
	}
	c.siblings = c.node.fields
	c.idx = 0
	c.node = c.siblings[0]
	return nil
}

func (c *checkCursor) GotoNextRecordField() error {
	c.idx++
	if c.idx >= len(c.siblings) {
		return errors.New("no more fields")
	}
	c.node = c.siblings[c.idx]
	return nil
}

func (c *checkCursor) GotoFirstArrayElement() error {
	if len(c.node.elements) == 0 {
		return errors.New("no elements")
	}
	c.siblings = c.node.elements
	c.idx = 0
	c.node = c.siblings[0]
	return nil
}

func (c *checkCursor) GotoNextArrayElement() error {
	c.idx++
	if c.idx >= len(c.siblings) {
		return errors.New("no more elements")
	}
	c.node = c.siblings[c.idx]
	return nil
}

func (c *checkCursor) GotoAttributes() error {
	if c.node.attrs == nil {
		return errors.New("no attributes")
	}
	c.node = c.node.attrs
	c.siblings = nil
	return nil
}

func (c *checkCursor) ReadString() (string, error) {
	if c.node.readStringErr != nil {
		return "", c.node.readStringErr
	}
	return c.node.readStringVal, nil
}

func (c *checkCursor) ReadInt64() (int64, error) {
	if c.node.readIntErr != nil {
		return 0, c.node.readIntErr
	}
	return c.node.readIntVal, nil
}

func (c *checkCursor) ReadDouble() (float64, error) {
	if c.node.readDoubleErr != nil {
		return 0, c.node.readDoubleErr
	}
	return c.node.readDoubleVal, nil
}

func TestRunCleanRecordReportsNothing(t *testing.T) {
	root := record("root", intLeaf("a", 1), intLeaf("b", 2))
	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRunReportsUnreadableIntegerField(t *testing.T) {
	bad := intLeaf("b", 0)
	bad.readIntErr = errors.New("truncated")
	root := record("root", intLeaf("a", 1), bad)

	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Path)
	assert.Contains(t, found[0].Message, "could not read integer value")
}

func TestRunReportsNegativeArrayCount(t *testing.T) {
	arr := &checkNode{name: "arr", class: typegraph.ClassArray, exists: true, numElements: -1, fast: true}
	root := record("root", arr)

	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "arr", found[0].Path)
	assert.Contains(t, found[0].Message, "negative value")
}

func TestRunSkipsZeroLengthArray(t *testing.T) {
	arr := &checkNode{name: "arr", class: typegraph.ClassArray, exists: true, numElements: 0, fast: true}
	root := record("root", arr)

	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRunWalksArrayElements(t *testing.T) {
	bad := intLeaf("unused", 0)
	bad.readIntErr = errors.New("bad element")
	arr := &checkNode{
		name: "arr", class: typegraph.ClassArray, exists: true, fast: true,
		numElements: 2,
		elements:    []*checkNode{intLeaf("unused", 1), bad},
	}
	root := record("root", arr)

	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "arr[1]", found[0].Path)
}

func TestRunWalksAttributesOnLeaf(t *testing.T) {
	badAttr := intLeaf("units", 0)
	badAttr.readIntErr = errors.New("bad attribute")
	leaf := intLeaf("temperature", 42)
	leaf.attrs = record("attrs", badAttr)
	root := record("root", leaf)

	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "temperature/@attributes/units", found[0].Path)
}

func TestRunFastOptionSkipsNonFastRecord(t *testing.T) {
	bad := intLeaf("b", 0)
	bad.readIntErr = errors.New("truncated")
	slow := record("slow", bad)
	slow.fast = false
	root := record("root", slow)

	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{Fast: true}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRunNonexistentNodeSkipped(t *testing.T) {
	absent := intLeaf("missing", 0)
	absent.exists = false
	absent.readIntErr = errors.New("should never be read")
	root := record("root", absent)

	var found []Discrepancy
	err := Run(newCheckCursor(root), Options{}, func(d Discrepancy) { found = append(found, d) })
	require.NoError(t, err)
	assert.Empty(t, found)
}
