// core/products/errors.go
package products

import "fmt"

// Reason codes recorded on a product when it is judged unusable. These are
// stable strings: they end up in logs and in user-facing "why was this
// skipped" summaries.
type Reason string

const (
	ReasonPathMissing Reason = "ProductPathDoesNotExist"
	ReasonSASError    Reason = "SASErrorPresent"
	ReasonOtherError  Reason = "OtherErrorPresent"
)

// GenerationError reports that a product file exists but cannot serve as a
// product (missing WCS, unreadable data, malformed constituents).
type GenerationError struct {
	Path string
	Msg  string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("product generation error for %s: %s", e.Path, e.Msg)
}

// MissingError reports an expected output path that does not exist after a
// generation run. Fatal to that product only.
type MissingError struct {
	Path string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("expected product output %s does not exist", e.Path)
}
