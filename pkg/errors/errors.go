// Package errors provides structured error handling for bpay.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the bpay CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitConfig   = 3 // Missing or invalid configuration
	ExitRejected = 5 // Rejected by the wallet, backend, or ledger
	ExitTimeout  = 6 // Operation timed out
)

// BpayError is the structured error type for bpay.
type BpayError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *BpayError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *BpayError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for BpayError.
func (e *BpayError) Is(target error) bool {
	var t *BpayError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &BpayError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &BpayError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// Configuration errors.
	ErrConfigInvalid = &BpayError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitConfig,
	}

	ErrUnknownConfigKey = &BpayError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}

	ErrConnectorNotConfigured = &BpayError{
		Code:     "CONNECTOR_NOT_CONFIGURED",
		Message:  "wallet connector is not initialized",
		ExitCode: ExitConfig,
	}

	ErrConnectorUnavailable = &BpayError{
		Code:     "CONNECTOR_UNAVAILABLE",
		Message:  "wallet connector could not be initialized",
		ExitCode: ExitConfig,
	}

	// Validation errors.
	ErrInvalidRecipient = &BpayError{
		Code:     "INVALID_RECIPIENT",
		Message:  "recipient must be an account id in shard.realm.num format",
		ExitCode: ExitInput,
	}

	ErrInvalidAccountID = &BpayError{
		Code:     "INVALID_ACCOUNT_ID",
		Message:  "invalid account id",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &BpayError{
		Code:     "INVALID_AMOUNT",
		Message:  "amount must be a positive decimal",
		ExitCode: ExitInput,
	}

	ErrAmountRequired = &BpayError{
		Code:     "AMOUNT_REQUIRED",
		Message:  "amount is required",
		ExitCode: ExitInput,
	}

	ErrMemoTooLong = &BpayError{
		Code:     "MEMO_TOO_LONG",
		Message:  "memo exceeds 100 bytes",
		ExitCode: ExitInput,
	}

	ErrInvalidTokenID = &BpayError{
		Code:     "INVALID_TOKEN_ID",
		Message:  "invalid token id",
		ExitCode: ExitInput,
	}

	ErrInvalidNetwork = &BpayError{
		Code:     "INVALID_NETWORK",
		Message:  "unsupported network",
		ExitCode: ExitInput,
	}

	// Connection errors.
	ErrConnectionTimeout = &BpayError{
		Code:     "CONNECTION_TIMEOUT",
		Message:  "no wallet session was established in time",
		ExitCode: ExitTimeout,
	}

	ErrUserRejected = &BpayError{
		Code:     "USER_REJECTED",
		Message:  "connection request was rejected in the wallet",
		ExitCode: ExitRejected,
	}

	ErrNoCompatibleAccount = &BpayError{
		Code:     "NO_COMPATIBLE_ACCOUNT",
		Message:  "the wallet has no account on the selected network",
		ExitCode: ExitRejected,
	}

	ErrConnectFailed = &BpayError{
		Code:     "CONNECT_FAILED",
		Message:  "wallet connection failed",
		ExitCode: ExitGeneral,
	}

	ErrConnectInProgress = &BpayError{
		Code:     "CONNECT_IN_PROGRESS",
		Message:  "a wallet connection attempt is already in progress",
		ExitCode: ExitGeneral,
	}

	ErrCancelled = &BpayError{
		Code:     "CANCELLED",
		Message:  "operation cancelled",
		ExitCode: ExitGeneral,
	}

	ErrNotConnected = &BpayError{
		Code:     "NOT_CONNECTED",
		Message:  "no wallet is connected",
		ExitCode: ExitInput,
	}

	// Backend and ledger errors.
	ErrBackend = &BpayError{
		Code:     "BACKEND_ERROR",
		Message:  "transfer service returned an error",
		ExitCode: ExitRejected,
	}

	ErrNetworkError = &BpayError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrRateLimited = &BpayError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: ExitGeneral,
	}

	ErrTxRejected = &BpayError{
		Code:     "TX_REJECTED",
		Message:  "transaction rejected by network",
		ExitCode: ExitRejected,
	}
)

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var be *BpayError
	if errors.As(err, &be) {
		return &BpayError{
			Code:       be.Code,
			Message:    fmt.Sprintf("%s: %s", msg, be.Message),
			Details:    be.Details,
			Suggestion: be.Suggestion,
			Cause:      err,
			ExitCode:   be.ExitCode,
		}
	}

	return &BpayError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of a structured error with the cause attached.
// Plain errors are wrapped as GENERAL_ERROR.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var be *BpayError
	if errors.As(err, &be) {
		return &BpayError{
			Code:       be.Code,
			Message:    be.Message,
			Details:    be.Details,
			Suggestion: be.Suggestion,
			Cause:      cause,
			ExitCode:   be.ExitCode,
		}
	}

	return Wrap(cause, "%s", err.Error())
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var be *BpayError
	if errors.As(err, &be) {
		return &BpayError{
			Code:       be.Code,
			Message:    be.Message,
			Details:    details,
			Suggestion: be.Suggestion,
			Cause:      be.Cause,
			ExitCode:   be.ExitCode,
		}
	}

	return &BpayError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var be *BpayError
	if errors.As(err, &be) {
		return &BpayError{
			Code:       be.Code,
			Message:    be.Message,
			Details:    be.Details,
			Suggestion: suggestion,
			Cause:      be.Cause,
			ExitCode:   be.ExitCode,
		}
	}

	return &BpayError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithMessage replaces the human-readable message, keeping code and exit code.
func WithMessage(err error, message string) error {
	if err == nil {
		return nil
	}

	var be *BpayError
	if errors.As(err, &be) {
		return &BpayError{
			Code:       be.Code,
			Message:    message,
			Details:    be.Details,
			Suggestion: be.Suggestion,
			Cause:      be.Cause,
			ExitCode:   be.ExitCode,
		}
	}

	return &BpayError{
		Code:     "GENERAL_ERROR",
		Message:  message,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var be *BpayError
	if errors.As(err, &be) {
		return be.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var be *BpayError
	if errors.As(err, &be) {
		return be.Code
	}
	return "GENERAL_ERROR"
}

// Message returns the human-readable message of a structured error, or
// err.Error() for plain errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var be *BpayError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
