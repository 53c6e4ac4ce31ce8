package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransition    = errors.New("invalid stage transition")
	ErrStageFatal    = errors.New("stage fatal error")
	ErrTransient     = errors.New("transient failure")
	ErrTimeout       = errors.New("timeout")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error must halt the run rather than be recorded
// against a single item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStageFatal) || errors.Is(err, ErrConfiguration)
}

// IsRetryable reports whether the executor may resubmit the failed operation.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout) || !isTagged(err)
}

// ErrorDetails captures the human-readable portion of a classified error.
type ErrorDetails struct {
	Message string
}

// Details strips sentinel prefixes so callers can surface the underlying message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	message := err.Error()
	for _, sentinel := range []error{ErrConfiguration, ErrTransition, ErrStageFatal, ErrTransient, ErrTimeout, ErrNotFound} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(message, prefix) {
			message = strings.TrimPrefix(message, prefix)
			break
		}
	}
	return ErrorDetails{Message: strings.TrimSpace(message)}
}

func isTagged(err error) bool {
	for _, sentinel := range []error{ErrConfiguration, ErrTransition, ErrStageFatal, ErrTransient, ErrTimeout, ErrNotFound} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
