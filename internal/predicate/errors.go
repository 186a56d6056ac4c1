package predicate

import "fmt"

// ConfigError reports a filter mis-declaration detected at setup time:
// an unknown target column, an operator outside the allow-list, a
// list/scalar operator mismatch, or a duplicate field registration.
// Configuration errors are fatal to startup and never recoverable at
// request time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "filter configuration: " + e.Reason
	}
	return fmt.Sprintf("filter configuration for field %q: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InputError reports a bad filter value supplied at request time, for
// example a scalar where a list operator expects a collection. Input
// errors are local to the request and are not configuration errors.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("filter value for field %q: %s", e.Field, e.Reason)
}

func inputErr(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
