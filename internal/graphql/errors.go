package graphql

import (
	"errors"
	"fmt"
	"strings"
)

// StatusError is returned when the endpoint answers with a non-200 status.
// It carries the offending query so a failed run can be reproduced.
type StatusError struct {
	StatusCode int
	Query      string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql: query failed to run by returning code of %d. %s", e.StatusCode, strings.TrimSpace(e.Query))
}

// GraphQLError is one entry of the "errors" array of a response.
type GraphQLError struct {
	Message string `json:"message"`
}

// QueryError is returned when a 200 response carries GraphQL errors.
type QueryError struct {
	Errors []GraphQLError
	Query  string
}

func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("graphql: query returned errors: %s", strings.Join(msgs, "; "))
}

// TransientError marks a failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient returns true if the error should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
