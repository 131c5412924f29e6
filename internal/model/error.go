package model

import "fmt"

// RuleError is the only error payload produced by this package.
//
// Codes:
//   - INVALID_DOMAIN: payload is not a valid hostname fragment
//   - INVALID_CIDR:   payload is not a valid IP/CIDR literal for the kind
//   - KIND_MISMATCH:  rule kind violates the ruleset homogeneity invariant
type RuleError struct {
	Code    string
	Message string
	Hint    string
	Cause   error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }
