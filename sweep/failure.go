package sweep

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure is a leaf-local, recoverable outcome. The drivers report it and
// carry on with the next leaf.
type Failure struct {
	Msg string
}

func (f *Failure) Error() string { return f.Msg }

func Failed(format string, args ...any) *Failure {
	return &Failure{Msg: fmt.Sprintf(format, args...)}
}

// FileNotFound is the failure of a unit of work whose input is missing.
func FileNotFound(name string) *Failure {
	return &Failure{Msg: name + " not found"}
}

func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}
