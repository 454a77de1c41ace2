package actions

import (
	"context"
)

// Action represents a long-running unit of work the agent supervises
type Action interface {
	// Name returns the unique identifier for this action
	Name() string
	// Execute runs the action until ctx is done or Stop is called
	Execute(ctx context.Context) error
	// Stop cleanly stops the action. It is safe to call more than once.
	Stop()
}
