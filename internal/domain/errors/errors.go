// Package errors defines domain-specific error types.
// Using typed errors (instead of strings) allows clients to handle specific cases.
//
// Pattern: Sentinel Errors + Custom Error Types
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors for domain validation
var (
	// Entity lookup errors
	ErrEntityNotFound      = errors.New("entity not found")
	ErrEntityAlreadyExists = errors.New("entity already exists")

	// Product errors
	ErrProductNotActive = errors.New("product is not active")

	// Order errors
	ErrInvalidOrderStatus     = errors.New("invalid order status")
	ErrOrderNotPending        = errors.New("order is not in pending state")
	ErrOrderAlreadyPaid       = errors.New("order is already paid")
	ErrOrderNotPaid           = errors.New("order has not been paid")
	ErrInvalidPaymentProvider = errors.New("invalid payment provider")
)

// DomainError is a custom error type that wraps errors with additional context.
//
// Pattern: Error Wrapping with Context
type DomainError struct {
	Code    string // Machine-readable error code (e.g., "ORDER_NOT_FOUND")
	Message string // Human-readable message
	Err     error  // Underlying error (for error chains)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents validation failures with field-level details.
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // What went wrong
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// BusinessRuleViolation represents a violation of a business rule.
// Unlike validation errors (which are about data format), these are about
// business logic: "order already expired" is a rule, not a format problem.
type BusinessRuleViolation struct {
	Rule    string                 // Rule that was violated (e.g., "FORWARD_ONLY_STATUS")
	Message string                 // Human-readable explanation
	Context map[string]interface{} // Additional context
}

// Error implements the error interface.
func (e BusinessRuleViolation) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s", e.Rule, e.Message)
}

// NewBusinessRuleViolation creates a new business rule violation error.
func NewBusinessRuleViolation(rule, message string, context map[string]interface{}) *BusinessRuleViolation {
	return &BusinessRuleViolation{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// GatewayError represents a failure talking to an external payment gateway:
// session creation, status retrieval, or webhook signature verification.
//
// Retryable marks failures the caller may safely retry (timeouts, 5xx).
// Signature failures are never retryable - possible tampering.
type GatewayError struct {
	Provider  string // "stripe", "redsys"
	Operation string // "create_session", "retrieve_session", "verify_signature"
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %s failed: %v", e.Provider, e.Operation, e.Err)
}

// Unwrap implements error unwrapping.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new gateway error.
func NewGatewayError(provider, operation string, retryable bool, err error) *GatewayError {
	return &GatewayError{
		Provider:  provider,
		Operation: operation,
		Retryable: retryable,
		Err:       err,
	}
}

// Helper functions for common error checking

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need only this package, not stdlib errors too.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is an "entity not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	var valErr ValidationError
	return errors.As(err, &valErr)
}

// IsBusinessRuleViolation checks if an error is a business rule violation.
func IsBusinessRuleViolation(err error) bool {
	var brv *BusinessRuleViolation
	if errors.As(err, &brv) {
		return true
	}
	var brvV BusinessRuleViolation
	return errors.As(err, &brvV)
}

// IsGatewayError checks if an error came from a payment gateway call.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// IsRetryableGatewayError reports whether the gateway failure is safe to retry.
func IsRetryableGatewayError(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}
