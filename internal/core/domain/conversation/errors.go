package conversation

import (
	"errors"
	"fmt"

	"london-hotel-monitor-bot/internal/core/domain/ratelimit"
)

// ValidationError некорректный ответ на шаге диалога
type ValidationError struct {
	Step   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Step, e.Reason)
}

func invalid(step, reason string) error {
	return &ValidationError{Step: step, Reason: reason}
}

var (
	ErrRateLimited             = ratelimit.ErrRateLimited
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrSessionTimeout          = errors.New("session timed out")
	ErrNotFound                = errors.New("not found")
	ErrShuttingDown            = errors.New("session manager is shutting down")
)
