package coordinator

import (
	"context"
	"errors"

	"github.com/yeremiapane/restaurant-waiter/floorclient"
	"github.com/yeremiapane/restaurant-waiter/roster"
)

// errorMessage turns an action failure into the text shown to the waiter.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, roster.ErrTableOccupied):
		return "Table is already taken by another waiter"
	case errors.Is(err, floorclient.ErrConflict):
		return "Someone else claimed this table first"
	case errors.Is(err, floorclient.ErrForbidden):
		return "This table belongs to another waiter"
	case errors.Is(err, floorclient.ErrUnauthorized):
		return "Session expired, please log in again"
	case errors.Is(err, floorclient.ErrNotFound):
		return "Table not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "Server did not answer in time"
	}
	return floorclient.Message(err)
}
