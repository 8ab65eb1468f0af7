// core/profile/errors.go
package profile

import "fmt"

// ModelNotAssociatedError: fit results were requested for a model that was
// never fitted to this profile.
type ModelNotAssociatedError struct {
	Model string
	Kind  Kind
}

func (e *ModelNotAssociatedError) Error() string {
	return fmt.Sprintf("model %q has no fit associated with this %s profile", e.Model, e.Kind)
}

// ParameterNotAssociatedError: a parameter index outside the fitted model's
// parameter set was requested.
type ParameterNotAssociatedError struct {
	Model string
	Index int
}

func (e *ParameterNotAssociatedError) Error() string {
	return fmt.Sprintf("model %q has no parameter %d", e.Model, e.Index)
}

// FitFailedError: the fit was attempted and is on record as bad, or produced
// non-finite output.
type FitFailedError struct {
	Model  string
	Method FitMethod
	Reason string
}

func (e *FitFailedError) Error() string {
	return fmt.Sprintf("%s fit of model %q failed: %s", e.Method, e.Model, e.Reason)
}

// TypeError: the operation is not defined for this profile kind (for
// instance fitting a base, untyped profile, which has no valid models).
type TypeError struct {
	Kind Kind
	Op   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("operation %q is not defined for %s profiles", e.Op, e.Kind)
}
