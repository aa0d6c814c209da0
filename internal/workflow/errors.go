package workflow

import (
	"errors"
	"fmt"
	"time"

	"hairstudio/internal/i18n"
)

// ErrStale is returned when a result arrives after the session moved on.
var ErrStale = errors.New("workflow: stale completion discarded")

// PhaseError rejects a transition or an operation. The phase is unchanged.
type PhaseError struct {
	Phase   Phase
	Message i18n.Key
	Args    []any
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("workflow: phase %s: %s", e.Phase.Code(), i18n.T(i18n.English, e.Message, e.Args...))
}

// Localize renders the user-facing message.
func (e *PhaseError) Localize(locale string) string {
	return i18n.T(locale, e.Message, e.Args...)
}

// Failure is the last user-visible failure of a loading phase or an edit.
type Failure struct {
	Phase   Phase     `json:"phase"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
