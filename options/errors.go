package options

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MissingDependencyError is returned when a key cannot be resolved on a leaf.
// It is an expected condition while a tree is only partially assembled.
type MissingDependencyError struct {
	Key string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency %q", e.Key)
}

// RelativePositionError is returned when an offset along an axis leaves the
// range of that axis, or the axis is not on the leaf's path.
type RelativePositionError struct {
	Axis   string
	Offset int
}

func (e *RelativePositionError) Error() string {
	return fmt.Sprintf("no node at offset %d along axis %q", e.Offset, e.Axis)
}

// TypeError reports an entry whose value has the wrong type.
type TypeError struct {
	Key  string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("entry %q: want %s, got %T", e.Key, e.Want, e.Got)
}

// CycleError reports dynamic entries that depend on themselves.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Chain, " -> ")
}

// IsMissingDependency reports whether err wraps a MissingDependencyError.
func IsMissingDependency(err error) bool {
	var target *MissingDependencyError
	return errors.As(err, &target)
}

// IsRelativePosition reports whether err wraps a RelativePositionError.
func IsRelativePosition(err error) bool {
	var target *RelativePositionError
	return errors.As(err, &target)
}
