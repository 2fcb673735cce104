package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrProvider      = errors.New("provider failure")
	ErrNotFound      = errors.New("expected result missing")
	ErrRateLimited   = fmt.Errorf("%w: rate limited", ErrProvider)
	ErrPollExhausted = errors.New("video operation did not complete within poll policy")
)

// OperationError is the error payload of a completed remote operation.
// Its message is surfaced unchanged.
type OperationError struct {
	Code    int
	Message string
}

func (e *OperationError) Error() string {
	return e.Message
}

// Is matches ErrRateLimited (and so ErrProvider) when the operation failed on quota.
func (e *OperationError) Is(target error) bool {
	if target != ErrRateLimited && target != ErrProvider {
		return false
	}
	return e.Code == 8 || e.Code == 429 || strings.Contains(strings.ToUpper(e.Message), "RESOURCE_EXHAUSTED")
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// providerFailure folds any upstream error into the flat taxonomy while keeping
// the original error reachable through errors.Is / errors.As.
func providerFailure(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrProvider), errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrProvider, err)
}
