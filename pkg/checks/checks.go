// Package checks centralizes the tagged, single-line invariant checks used
// throughout tensorgrad's core packages (shape mismatch, index bounds, leaf
// mutation, scalar extraction, ...). Every check failure is fatal: callers
// are expected to return the error immediately, never to retry or locally
// recover from it.
package checks

import "fmt"

// Tag identifies the class of invariant that failed, mirroring the
// CHECK_EQUAL / CHECK_IN_RANGE / CHECK_TRUE family of the original engine.
type Tag string

const (
	TagEqual           Tag = "CHECK_EQUAL"
	TagInRange         Tag = "CHECK_IN_RANGE"
	TagTrue            Tag = "CHECK_TRUE"
	TagShapeMismatch   Tag = "CHECK_SHAPE"
	TagNonContiguous   Tag = "CHECK_CONTIGUOUS"
	TagElementCount    Tag = "CHECK_NUMEL"
	TagScalarRequired  Tag = "CHECK_SCALAR"
	TagLeafMutated     Tag = "CHECK_VERSION"
	TagUnimplemented   Tag = "CHECK_UNIMPLEMENTED"
	TagDimOutOfRange   Tag = "CHECK_DIM"
	TagIndexOutOfRange Tag = "CHECK_INDEX"
)

// Error is the single error type every check in this package returns.
type Error struct {
	Tag Tag
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Tag, e.Msg)
}

func fail(tag Tag, format string, args ...interface{}) *Error {
	return &Error{Tag: tag, Msg: fmt.Sprintf(format, args...)}
}

// Equal fails unless a == b, tagged CHECK_EQUAL.
func Equal(a, b int, format string, args ...interface{}) error {
	if a != b {
		return fail(TagEqual, format, args...)
	}
	return nil
}

// True fails unless cond holds, tagged CHECK_TRUE.
func True(cond bool, format string, args ...interface{}) error {
	if !cond {
		return fail(TagTrue, format, args...)
	}
	return nil
}

// InRange fails unless lo <= v < hi, tagged CHECK_IN_RANGE.
func InRange(v, lo, hi int, format string, args ...interface{}) error {
	if v < lo || v >= hi {
		return fail(TagInRange, format, args...)
	}
	return nil
}

// ShapeMismatch reports incompatible operand shapes.
func ShapeMismatch(format string, args ...interface{}) error {
	return fail(TagShapeMismatch, format, args...)
}

// NonContiguous reports a view requiring contiguity applied to a non-contiguous tensor.
func NonContiguous(format string, args ...interface{}) error {
	return fail(TagNonContiguous, format, args...)
}

// ElementCount reports a view whose target shape changes total element count.
func ElementCount(format string, args ...interface{}) error {
	return fail(TagElementCount, format, args...)
}

// ScalarRequired reports item()/backward() called on a non-singleton tensor.
func ScalarRequired(format string, args ...interface{}) error {
	return fail(TagScalarRequired, format, args...)
}

// LeafMutated reports a version mismatch between a captured operand handle and its tensor.
func LeafMutated(format string, args ...interface{}) error {
	return fail(TagLeafMutated, format, args...)
}

// Unimplemented reports backward invoked through an operator with no grad rule.
func Unimplemented(format string, args ...interface{}) error {
	return fail(TagUnimplemented, format, args...)
}

// DimOutOfRange reports a dim argument outside [0, ndim).
func DimOutOfRange(format string, args ...interface{}) error {
	return fail(TagDimOutOfRange, format, args...)
}

// IndexOutOfRange reports a scalar index or slice bound violation.
func IndexOutOfRange(format string, args ...interface{}) error {
	return fail(TagIndexOutOfRange, format, args...)
}
