/*package errs contains the error taxonomy shared by every stage of an
immersed boundary run. Callers distinguish failures with errors.Is.
*/
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration marks bad construction or run parameters. It
	// is always reported before the first step.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidIndex marks a marker or source binding that does not exist.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrDiverged marks a step which produced a non-finite marker position
	// or grid velocity.
	ErrDiverged = errors.New("simulation diverged")
)

// Config returns an ErrInvalidConfiguration with a formatted description.
func Config(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration,
		fmt.Sprintf(format, args...))
}

// Index returns an ErrInvalidIndex with a formatted description.
func Index(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidIndex, fmt.Sprintf(format, args...))
}

// DivergedError reports the step at which a run blew up. The state of the
// run is left at the end of the previous step.
type DivergedError struct {
	Step int
	Time float64
	// What describes the first non-finite quantity that was found.
	What string
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf("%s at step %d (t = %g): %s",
		ErrDiverged.Error(), e.Step, e.Time, e.What)
}

func (e *DivergedError) Unwrap() error { return ErrDiverged }
