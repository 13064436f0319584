package resize

import (
	"errors"
	"fmt"
)

var ErrNilTarget = errors.New("resize: target is nil")

// TargetReadError reports a failure reading one field of the target. A tick
// that hits it is abandoned: the stored Sample is left as it was and no
// event fires. The next tick tries again from scratch.
type TargetReadError struct {
	Dimension Dimension
	Err       error
}

func (e *TargetReadError) Error() string {
	return fmt.Sprintf("resize: read %s: %v", e.Dimension, e.Err)
}

func (e *TargetReadError) Unwrap() error {
	return e.Err
}
