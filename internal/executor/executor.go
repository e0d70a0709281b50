// Package executor gates synthesized statements behind an explicit user
// confirmation when the backend reports them as dangerous.
//
// A Gate moves between three states:
//
//	Idle --Submit--> Executing --ok--> Idle (after one refetch)
//	                     |------confirmation payload--> AwaitingConfirmation
//	                     |------error--> Idle
//	AwaitingConfirmation --Confirm--> Executing (same SQL, confirmed)
//	AwaitingConfirmation --Cancel--> Idle
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tablewright/tablewright/internal/source"
)

// State is the gate's lifecycle position.
type State string

const (
	Idle                 State = "idle"
	Executing            State = "executing"
	AwaitingConfirmation State = "awaiting_confirmation"
)

// Status of a completed submission.
type Status string

const (
	StatusExecuted             Status = "executed"
	StatusConfirmationRequired Status = "confirmation_required"
)

var (
	// ErrBusy is returned when a statement is submitted while another is
	// executing or awaiting confirmation.
	ErrBusy = errors.New("another operation is in progress")

	// ErrNoPending is returned when confirming or cancelling an operation
	// that is not the one awaiting confirmation.
	ErrNoPending = errors.New("no matching operation is awaiting confirmation")
)

// Runner is the query-execution boundary.
type Runner interface {
	Execute(ctx context.Context, connectionID, sql string, confirmed bool) (*source.QueryResult, error)
}

// ConfirmationRequired is the payload a Runner returns instead of executing
// a dangerous statement.
type ConfirmationRequired = source.ConfirmationRequired

// ParseConfirmation reports whether err carries a confirmation payload,
// either as a typed error or as its JSON encoding.
func ParseConfirmation(err error) (*ConfirmationRequired, bool) {
	if err == nil {
		return nil, false
	}
	var cr *ConfirmationRequired
	if errors.As(err, &cr) && cr.RequiresConfirmation {
		return cr, true
	}

	var payload ConfirmationRequired
	if json.Unmarshal([]byte(err.Error()), &payload) == nil && payload.RequiresConfirmation {
		return &payload, true
	}
	return nil, false
}

// PendingOperation is a statement held until the user confirms or cancels.
// SQL is kept verbatim so the confirmed replay is byte-identical.
type PendingOperation struct {
	ID            uuid.UUID `json:"id"`
	ConnectionID  string    `json:"connection_id"`
	Schema        string    `json:"schema"`
	SQL           string    `json:"sql"`
	Message       string    `json:"message"`
	DangerousType string    `json:"dangerous_type"`
	CreatedAt     time.Time `json:"created_at"`
}

// Outcome is the result of a Submit or Confirm.
type Outcome struct {
	Status  Status              `json:"status"`
	SQL     string              `json:"sql"`
	Result  *source.QueryResult `json:"result,omitempty"`
	Pending *PendingOperation   `json:"pending,omitempty"`

	// RefreshError is set when the statement succeeded but reloading the
	// metadata afterwards failed.
	RefreshError error `json:"-"`
}

// ExecutionError wraps a backend failure. Its message is the backend's,
// unchanged.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }
