package timeline

import "fmt"

// ValidationError reports a schema or invariant violation at field
// granularity, per spec.md §7.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}
