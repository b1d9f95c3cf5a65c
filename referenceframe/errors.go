package referenceframe

import "fmt"

// NewParentFrameMissingError returns an error indicating that a frame is missing a parent.
func NewParentFrameMissingError() error {
	return fmt.Errorf("parent frame is nil")
}

// NewIncorrectDoFError returns an error indicating that the number of inputs provided does not
// match the number of degrees of freedom expected.
func NewIncorrectDoFError(actual, expected int) error {
	return fmt.Errorf("given number of inputs (%d) does not match frame DoF (%d)", actual, expected)
}

// NewFrameMissingError returns an error indicating that a frame name was not found where expected.
func NewFrameMissingError(name string) error {
	return fmt.Errorf("frame %q missing from inputs", name)
}
