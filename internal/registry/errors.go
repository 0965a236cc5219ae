package registry

import "fmt"

// UnknownGeneratorError is returned when a provider or method is not part of
// the catalog.
type UnknownGeneratorError struct {
	Provider string
	Method   string
}

func (e *UnknownGeneratorError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("unknown generator provider %q", e.Provider)
	}
	return fmt.Sprintf("unknown generator %s.%s", e.Provider, e.Method)
}

// InvalidParameterError is returned when a parameter does not match the
// method's parameter schema.
type InvalidParameterError struct {
	Provider string
	Method   string
	Param    string
	Reason   string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q for %s.%s: %s", e.Param, e.Provider, e.Method, e.Reason)
}
