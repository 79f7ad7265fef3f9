package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorCategory classifies directory failures into the buckets the
// authentication verdict depends on.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// DirectoryError carries the structured failure information obtained
// from the directory client alongside the underlying cause.
type DirectoryError struct {
	Operation  string        // the operation that failed ("dial", "search", "bind")
	Category   ErrorCategory // classified failure category
	ResultCode uint16        // LDAP result code, 0 when not an LDAP-level failure
	Message    string        // human-readable summary
	Cause      error         // underlying error
}

func (e *DirectoryError) Error() string {
	var parts []string
	if e.ResultCode > 0 {
		parts = append(parts, fmt.Sprintf("LDAP %s failed (code %d)", e.Operation, e.ResultCode))
	} else if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("LDAP %s failed", e.Operation))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(parts) == 0 {
		return "LDAP operation failed"
	}
	return strings.Join(parts, ": ")
}

func (e *DirectoryError) Unwrap() error {
	return e.Cause
}

// NewDirectoryError classifies err and wraps it with operation context.
// Returns nil for a nil err.
func NewDirectoryError(operation string, err error) *DirectoryError {
	if err == nil {
		return nil
	}

	de := &DirectoryError{
		Operation: operation,
		Cause:     err,
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		de.ResultCode = ldapErr.ResultCode
		de.Category = categorizeResultCode(ldapErr.ResultCode)
		de.Message = ldap.LDAPResultCodeMap[ldapErr.ResultCode]
		return de
	}

	de.Category = categorizeGenericError(err)
	de.Message = err.Error()
	return de
}

// NewConnectionError wraps a transport-level failure.
func NewConnectionError(message string, cause error) *DirectoryError {
	return &DirectoryError{
		Operation: "dial",
		Category:  ErrorCategoryConnection,
		Message:   message,
		Cause:     cause,
	}
}

// categorizeResultCode maps an LDAP result code to a failure category.
// The structured code is authoritative; string matching is reserved for
// errors with no code at all.
func categorizeResultCode(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired,
		ldap.LDAPResultAuthMethodNotSupported:
		return ErrorCategoryAuthentication

	case ldap.LDAPResultNoSuchObject:
		return ErrorCategoryNotFound

	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultTimeout,
		ldap.LDAPResultConnectError,
		ldap.LDAPResultProtocolError:
		return ErrorCategoryServer

	default:
		return ErrorCategoryUnknown
	}
}

// categorizeGenericError classifies non-LDAP errors, falling back to
// substring matching when no structured information exists.
func categorizeGenericError(err error) ErrorCategory {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorCategoryConnection
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryConnection
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "broken pipe"),
		strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "no such host"):
		return ErrorCategoryConnection
	case strings.Contains(errStr, "credentials"),
		strings.Contains(errStr, "authentication"):
		return ErrorCategoryAuthentication
	default:
		return ErrorCategoryUnknown
	}
}

// Category returns the failure category of err, classifying raw go-ldap
// errors on the fly.
func Category(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var de *DirectoryError
	if errors.As(err, &de) {
		return de.Category
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return categorizeResultCode(ldapErr.ResultCode)
	}

	return categorizeGenericError(err)
}

// IsAuthenticationError reports whether err is a bind rejection rather
// than an infrastructure failure.
func IsAuthenticationError(err error) bool {
	return Category(err) == ErrorCategoryAuthentication
}

// IsUnavailableError reports whether err indicates the directory could
// not be reached or could not serve the request.
func IsUnavailableError(err error) bool {
	switch Category(err) {
	case ErrorCategoryConnection, ErrorCategoryServer:
		return true
	default:
		return false
	}
}
